// Package services defines shared utilities consumed by the encode pipeline
// stages and the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and stage names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (validation, external tool, invariant, verification) for the run ledger.
//
// Use these helpers when wiring new stage logic so error reporting and
// observability stay uniform across the pipeline.
package services
