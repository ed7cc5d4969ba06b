package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Console lines carry wall-clock time only; an encode run rarely spans midnight.
const consoleTimeLayout = "15:04:05.000"

// cidPrefix matches the textual form of content identifiers.
const cidPrefix = "b3:"

const cidConsoleDigits = 12

func consoleTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleTimeLayout)
}

// plainValue renders v without quoting, for prefixes such as the component.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

// consoleValue renders one key=value pair for the console handler. Byte
// counts become human sizes and content identifiers are shortened.
func consoleValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(shortCID(v.String()))
	case slog.KindInt64:
		if strings.HasSuffix(key, "_bytes") && v.Int64() >= 0 {
			return humanize.IBytes(uint64(v.Int64()))
		}
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		if strings.HasSuffix(key, "_bytes") {
			return humanize.IBytes(v.Uint64())
		}
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return consoleTime(v.Time())
	default:
		return quoteIfNeeded(plainValue(v))
	}
}

func shortCID(s string) string {
	digest, ok := strings.CutPrefix(s, cidPrefix)
	if !ok || len(digest) <= cidConsoleDigits {
		return s
	}
	return cidPrefix + digest[:cidConsoleDigits] + "…"
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
