// Package child wraps operating-system process creation behind a small
// handle used by the launch facade.  A started process owns exactly one
// waiter goroutine which records the exit status and delivers the completion
// hook - either posted to a scheduler loop or invoked directly when no loop
// is attached.
//
// Process-group isolation is only effective on POSIX systems.  On Windows the
// Isolate flag is accepted but the child shares the parent's group, so signal
// delivery covers the direct child only.
package child
