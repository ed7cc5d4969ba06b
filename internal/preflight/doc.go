// Package preflight provides readiness checks for the binaries and
// filesystem paths vcxenc depends on.
//
// The CLI "vcxenc status" command renders RunAll's results. Ledger and
// metrics locations are only checked when those features are configured.
package preflight
