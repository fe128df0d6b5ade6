// Package scheduler provides the cooperative completion loop that delivers
// child-process exit hooks.  Tasks are posted from any goroutine but only
// ever execute on the goroutine driving the loop, so handlers observe the
// single-threaded ordering that callers of Poll and Run expect.
package scheduler
