// Package spawnly provides a blocking façade over child-process execution.
//
// A single Run call starts an executable and waits for it, selecting one of
// four waiting protocols from the capabilities carried by the launch options:
//
//   - drive-supplied – completion options plus a caller-owned scheduler;
//     Run polls that loop until the exit hook has been delivered
//   - own-and-run – completion options without a scheduler; Run creates a
//     private loop, runs it to completion and tears it down
//   - blocking-supplied – a scheduler without completion options; Run waits
//     on the child directly and leaves the loop alone
//   - blocking-plain – neither; a plain wait with default signal disposition
//
// End-users typically interact with the façade through the root package:
//
//	code := spawnly.Run(ctx, "gzip", spawnly.WithArgs("-k", "archive.tar"))
//
// Completion handlers and suspension tokens always execute on the goroutine
// driving the completion loop, never concurrently with the caller:
//
//	token := scheduler.NewToken()
//	code := spawnly.Run(ctx, "make",
//		spawnly.WithArgs("install"),
//		spawnly.WithOnExit(func(code int, err error) { log.Printf("done: %v", code) }),
//		spawnly.WithToken(token))
//
// Start offers the non-blocking variant returning a process handle whose
// Done channel reports completion.  For more details see the individual
// sub-packages.
package spawnly
