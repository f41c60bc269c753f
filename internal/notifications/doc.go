// Package notifications delivers encoding lifecycle events to operators.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Workflow
// code depends only on the Service interface; delivery failures are the
// caller's to log.
package notifications
