// Package services defines shared utilities consumed by the pipeline stages
// and external adapters.
//
// Key responsibilities:
//   - Context helpers that stamp stage names, video paths, approval request
//     ids, and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so every adapter failure
//     names the adapter and the underlying cause.
//
// Use these helpers when wiring new adapters so error handling and
// observability stay uniform across the pipeline.
package services
