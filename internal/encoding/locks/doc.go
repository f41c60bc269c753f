// Package locks provides keyed mutual exclusion for per-asset critical
// sections.
//
// Keyed covers goroutines in one process. FileLocker adds advisory file locks
// so several CLI invocations sharing a data directory serialize, and
// RedisLocker does the same across hosts.
package locks
