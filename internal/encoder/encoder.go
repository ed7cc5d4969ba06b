package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vcxenc/internal/cid"
	"vcxenc/internal/decoder"
	"vcxenc/internal/frames"
	"vcxenc/internal/ledger"
	"vcxenc/internal/logging"
	"vcxenc/internal/manifest"
	"vcxenc/internal/metrics"
	"vcxenc/internal/pack"
	"vcxenc/internal/probe"
	"vcxenc/internal/services"
	"vcxenc/internal/sidecar"
	"vcxenc/internal/tile"
)

// Name is the encoder identity written into sidecars.
const Name = "vcxenc"

var (
	// ErrEmptyAudioPayload reports an audio transcode that produced no bytes.
	ErrEmptyAudioPayload = errors.New("audio transcode produced an empty payload")
	// ErrOutputLocked reports another encode writing the same output.
	ErrOutputLocked = errors.New("output is locked by another encode")
	// ErrNoTiles reports a run whose frames yielded no tile payloads.
	ErrNoTiles = errors.New("no tile payloads produced")
)

// RunRecorder persists run outcomes. *ledger.Store satisfies it.
type RunRecorder interface {
	Record(ctx context.Context, run ledger.Run) error
}

// Encoder turns a media source into a verified VCX pack.
type Encoder struct {
	decoder         decoder.Decoder
	logger          *slog.Logger
	metrics         *metrics.Metrics
	metricsTextfile string
	recorder        RunRecorder
	version         string
	now             func() time.Time
	verify          VerifyFunc
}

// VerifyFunc re-opens a written pack. pack.Open is the default.
type VerifyFunc func(path string, full bool) (*pack.Pack, error)

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records run metrics and, when textfile is set, exports them
// there after every run.
func WithMetrics(m *metrics.Metrics, textfile string) Option {
	return func(e *Encoder) {
		e.metrics = m
		e.metricsTextfile = textfile
	}
}

// WithRecorder records every run, successful or not.
func WithRecorder(r RunRecorder) Option {
	return func(e *Encoder) {
		e.recorder = r
	}
}

// WithVersion sets the version reported in sidecars.
func WithVersion(version string) Option {
	return func(e *Encoder) {
		if v := strings.TrimSpace(version); v != "" {
			e.version = v
		}
	}
}

// WithVerifier replaces the function used to re-open and verify the written
// pack.
func WithVerifier(verify VerifyFunc) Option {
	return func(e *Encoder) {
		if verify != nil {
			e.verify = verify
		}
	}
}

// New constructs an Encoder around the given decoder.
func New(dec decoder.Decoder, opts ...Option) *Encoder {
	e := &Encoder{
		decoder: dec,
		logger:  logging.NewNop(),
		version: "dev",
		now:     time.Now,
		verify:  pack.Open,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = logging.NewComponentLogger(e.logger, "encoder")
	return e
}

// run carries per-run state between stages.
type run struct {
	id      string
	opts    Options
	logger  *slog.Logger
	started time.Time

	sourceHash string
	meta       probe.VideoMeta
	planes     [][]byte
	tiles      []tile.Payload
	audio      []byte
	audioCID   string
	sidecar    []byte
	sidecarCID string
	manifest   manifest.Manifest
	layout     pack.Layout
}

// Run executes the full pipeline. Any stage failure aborts the run; nothing
// is retried and no partial pack is left at the output path.
func (e *Encoder) Run(ctx context.Context, opts Options) (Result, error) {
	r := &run{id: uuid.NewString(), opts: opts, started: e.now()}
	ctx = services.WithRunID(ctx, r.id)
	r.logger = logging.WithContext(ctx, e.logger)

	result, err := e.execute(ctx, r)
	e.finish(ctx, r, result, err)
	return result, err
}

func (e *Encoder) execute(ctx context.Context, r *run) (Result, error) {
	stages := []struct {
		name string
		fn   func(context.Context, *run) error
	}{
		{"validate", e.validate},
		{"hash", e.hashSource},
		{"probe", e.probe},
		{"decode", e.decode},
		{"tile", e.buildTiles},
		{"audio", e.buildAudio},
		{"sidecar", e.buildSidecar},
		{"manifest", e.buildManifest},
		{"pack", e.writePack},
	}
	for _, stage := range stages {
		stageCtx := services.WithStage(ctx, stage.name)
		start := e.now()
		err := stage.fn(stageCtx, r)
		e.metrics.ObserveStage(stage.name, e.now().Sub(start))
		if err != nil {
			return Result{}, err
		}
	}

	result := Result{
		RunID:       r.id,
		InputPath:   r.opts.InputPath,
		OutputPath:  r.opts.OutputPath,
		ManifestOut: r.opts.ManifestOut,
		ManifestID:  r.manifest.ID,
		SourceHash:  r.sourceHash,
		Meta:        r.meta,
		Frames:      len(r.planes),
		Tiles:       len(r.tiles),
		SidecarCID:  r.sidecarCID,
		AudioCID:    r.audioCID,
		Layout:      r.layout,
	}
	r.logger.Info(
		"encode complete",
		logging.String(logging.FieldEventType, "encode_complete"),
		logging.String("output", result.OutputPath),
		logging.String("manifest_id", result.ManifestID),
		logging.Int("frames", result.Frames),
		logging.Int("tiles", result.Tiles),
		logging.Uint64("pack_bytes", result.Layout.Size()),
		logging.String("sidecar_cid", result.SidecarCID),
		logging.String("audio_cid", result.AudioCID),
		logging.Duration("elapsed", e.now().Sub(r.started)),
	)
	return result, nil
}

func (e *Encoder) validate(_ context.Context, r *run) error {
	return r.opts.Validate()
}

func (e *Encoder) hashSource(_ context.Context, r *run) error {
	sum, err := cid.HashFile(r.opts.InputPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "hash", "read source", "", err)
	}
	r.sourceHash = sum
	r.logger.Debug("source hashed", logging.String("hash_b3", sum))
	return nil
}

func (e *Encoder) probe(ctx context.Context, r *run) error {
	result, err := e.decoder.Probe(ctx, r.opts.InputPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "probe", "inspect source", "", err)
	}
	meta, err := probe.Normalize(result)
	if err != nil {
		return services.Wrap(services.ErrValidation, "probe", "normalize metadata", r.opts.InputPath, err)
	}
	r.meta = meta
	attrs := []logging.Attr{
		logging.Int64("width", int64(meta.Width)),
		logging.Int64("height", int64(meta.Height)),
		logging.String("fps", fmt.Sprintf("%d/%d", meta.FPSNum, meta.FPSDen)),
		logging.String("codec", meta.VideoCodec),
		logging.Bool("has_audio", meta.HasAudio()),
	}
	if meta.DurationSeconds != nil {
		attrs = append(attrs, logging.String("duration_seconds", sidecar.FormatSeconds(*meta.DurationSeconds)))
	}
	r.logger.Info("source probed", logging.Args(attrs...)...)
	return nil
}

func (e *Encoder) decode(ctx context.Context, r *run) error {
	stream, err := e.decoder.DecodeFrames(ctx, r.opts.InputPath, r.opts.MaxFrames)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "decode", "start decoder", "", err)
	}
	planes, err := frames.Read(stream, r.meta.Width, r.meta.Height, r.opts.MaxFrames)
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, frames.ErrFrameSize) {
			marker = services.ErrInvariant
		}
		return services.Wrap(marker, "decode", "read frames", r.opts.InputPath, err)
	}
	r.planes = planes
	e.metrics.AddFrames(len(planes))
	r.logger.Info("frames decoded", logging.Int("frames", len(planes)), logging.Int64("max_frames", int64(r.opts.MaxFrames)))
	return nil
}

func (e *Encoder) buildTiles(_ context.Context, r *run) error {
	tiles, err := tile.BuildPayloads(r.planes, r.meta.Width, r.meta.Height, r.opts.TileSize, cid.ID)
	if err != nil {
		return services.Wrap(services.ErrInvariant, "tile", "encode tiles", "", err)
	}
	if len(tiles) == 0 {
		return services.Wrap(services.ErrInvariant, "tile", "encode tiles", "", ErrNoTiles)
	}
	r.tiles = tiles
	e.metrics.AddTiles(len(tiles))
	cols, rows := tile.GridSize(int(r.meta.Width), int(r.meta.Height), r.opts.TileSize)
	r.logger.Info("tiles encoded",
		logging.Int("tiles", len(tiles)),
		logging.String("grid", fmt.Sprintf("%dx%d", cols, rows)),
		logging.Int("tile_size", int(r.opts.TileSize)),
	)
	return nil
}

func (e *Encoder) buildAudio(ctx context.Context, r *run) error {
	switch {
	case r.opts.NoAudio:
		r.logger.Info("audio payload skipped", logging.Args(logging.DecisionAttrs("audio_payload", "skipped", "audio disabled")...)...)
		return nil
	case !r.meta.HasAudio():
		r.logger.Info("audio payload skipped", logging.Args(logging.DecisionAttrs("audio_payload", "skipped", "source has no audio stream")...)...)
		return nil
	}

	data, err := e.decoder.TranscodeAudio(ctx, r.opts.InputPath, r.opts.AudioBitrate)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "transcode", r.opts.InputPath, err)
	}
	if len(data) == 0 {
		return services.Wrap(services.ErrExternalTool, "audio", "transcode", r.opts.InputPath, ErrEmptyAudioPayload)
	}
	r.audio = data
	r.audioCID = cid.ID(data)
	r.logger.Info("audio payload encoded",
		logging.String("codec_in", *r.meta.AudioCodec),
		logging.String("bitrate", r.opts.AudioBitrate),
		logging.Int("bytes", len(data)),
	)
	return nil
}

func (e *Encoder) buildSidecar(_ context.Context, r *run) error {
	data, err := sidecar.Build(sidecar.Input{
		Encoder:         Name + "/" + e.version,
		Profile:         manifest.Profile,
		SourcePath:      r.opts.InputPath,
		SourceHashHex:   r.sourceHash,
		VideoCodec:      r.meta.VideoCodec,
		Width:           r.meta.Width,
		Height:          r.meta.Height,
		FPSNum:          r.meta.FPSNum,
		FPSDen:          r.meta.FPSDen,
		FramesEncoded:   uint64(len(r.planes)),
		TileSize:        r.opts.TileSize,
		DurationSeconds: r.meta.DurationSeconds,
		HasAudioPayload: len(r.audio) > 0,
		AudioCodec:      r.meta.AudioCodec,
	})
	if err != nil {
		return services.Wrap(services.ErrInvariant, "sidecar", "build", "", err)
	}
	r.sidecar = data
	r.sidecarCID = cid.ID(data)
	return nil
}

func (e *Encoder) buildManifest(_ context.Context, r *run) error {
	id := strings.TrimSpace(r.opts.ManifestID)
	if id == "" {
		id = manifest.DefaultID(r.sourceHash)
		r.logger.Info("manifest id derived", logging.Args(logging.DecisionAttrs("manifest_id", id, "derived from source hash")...)...)
	}
	frameCount := uint64(len(r.planes))
	m, err := manifest.Build(manifest.Input{
		World:         strings.TrimSpace(r.opts.World),
		ID:            id,
		Meta:          r.meta,
		FrameCount:    frameCount,
		TicksPerFrame: manifest.TicksPerFrame(r.meta.FPSNum, r.meta.FPSDen, manifest.Timebase),
		TileSize:      r.opts.TileSize,
		Tiles:         r.tiles,
		SidecarCID:    r.sidecarCID,
		AudioCID:      r.audioCID,
	})
	if err != nil {
		return services.Wrap(services.ErrInvariant, "manifest", "build", "", err)
	}
	r.manifest = m

	if out := strings.TrimSpace(r.opts.ManifestOut); out != "" {
		if err := writeManifestCopy(out, m); err != nil {
			return services.Wrap(services.ErrConfiguration, "manifest", "write manifest copy", out, err)
		}
		r.logger.Info("manifest copy written", logging.String("path", out))
	}
	return nil
}

func writeManifestCopy(path string, m manifest.Manifest) error {
	data, err := manifest.MarshalIndent(m)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create manifest directory: %w", err)
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (e *Encoder) writePack(_ context.Context, r *run) error {
	out := r.opts.OutputPath
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "pack", "create output directory", "", err)
	}

	lock := flock.New(out + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "pack", "acquire output lock", out, err)
	}
	if !ok {
		return services.Wrap(services.ErrValidation, "pack", "acquire output lock", out, ErrOutputLocked)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	payloads := make([]pack.Payload, 0, len(r.tiles)+2)
	for _, t := range r.tiles {
		payloads = append(payloads, pack.Payload{Tag: pack.TagIC0Tile, CID: t.CID, Bytes: t.Bytes})
	}
	payloads = append(payloads, pack.Payload{Tag: pack.TagSidecar, CID: r.sidecarCID, Bytes: r.sidecar})
	if len(r.audio) > 0 {
		payloads = append(payloads, pack.Payload{Tag: pack.TagOpus, CID: r.audioCID, Bytes: r.audio})
	}

	layout, err := writePackFile(out, r.manifest, payloads, r.opts.Strict)
	if err != nil {
		return services.Wrap(services.ErrInvariant, "pack", "build", out, err)
	}

	if _, err := e.verify(out, true); err != nil {
		_ = os.Remove(out)
		return services.Wrap(services.ErrVerification, "verify", "reopen pack", out, err)
	}
	r.layout = layout
	for _, p := range payloads {
		e.metrics.AddPayloadBytes(p.Tag.String(), len(p.Bytes))
	}
	r.logger.Info("pack written and verified",
		logging.String("output", out),
		logging.Int("payloads", layout.Entries),
		logging.Uint64("bytes", layout.Size()),
		logging.Bool("strict", layout.Strict()),
	)
	return nil
}

// writePackFile builds into a temp file beside path and renames it into place.
func writePackFile(path string, m manifest.Manifest, payloads []pack.Payload, strict bool) (pack.Layout, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return pack.Layout{}, fmt.Errorf("create temp pack: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	w := bufio.NewWriter(tmp)
	layout, err := pack.Build(w, m, payloads, strict)
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return pack.Layout{}, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return pack.Layout{}, fmt.Errorf("move pack into place: %w", err)
	}
	return layout, nil
}

func (e *Encoder) finish(ctx context.Context, r *run, result Result, runErr error) {
	status := ledger.StatusSucceeded
	if runErr != nil {
		status = ledger.StatusFailed
		logging.ErrorWithContext(r.logger, "encode failed", "encode_failed",
			logging.Error(runErr),
			logging.String("error_class", services.Classify(runErr)),
			logging.String("input", r.opts.InputPath),
		)
	}
	e.metrics.IncRuns(string(status))
	if err := e.metrics.WriteTextfile(e.metricsTextfile); err != nil {
		r.logger.Warn("failed to export metrics", logging.Error(err))
	}

	if e.recorder == nil {
		return
	}
	entry := ledger.Run{
		RunID:      r.id,
		StartedAt:  r.started,
		FinishedAt: e.now(),
		InputPath:  r.opts.InputPath,
		InputHash:  r.sourceHash,
		OutputPath: r.opts.OutputPath,
		ManifestID: r.manifest.ID,
		Frames:     uint64(len(r.planes)),
		Tiles:      uint64(len(r.tiles)),
		PackBytes:  result.Layout.Size(),
		SidecarCID: r.sidecarCID,
		AudioCID:   r.audioCID,
		Status:     status,
	}
	if runErr != nil {
		entry.ErrorClass = services.Classify(runErr)
		entry.ErrorMessage = runErr.Error()
	}
	if err := e.recorder.Record(ctx, entry); err != nil {
		r.logger.Warn("failed to record run in ledger", logging.Error(err))
	}
}
