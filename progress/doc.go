// Package progress defines primitives for reporting and aggregating the
// progress of a manifest run.  The tracker lives in the run context so that
// callers can consume counter updates in a uniform way regardless of whether
// tasks execute sequentially or fan out over several workers.
package progress
