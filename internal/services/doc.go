// Package services defines shared utilities consumed by the encoding workflow
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp asset IDs, operation names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify a
//     failure with errors.Is and decide whether it escalates or is absorbed
//     into the job's error state.
//
// Use these helpers when wiring new workflow logic so error handling and
// observability stay uniform across the system.
package services
