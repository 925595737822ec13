// ABOUTME: Export package documentation
// ABOUTME: Summarizes Run, File and the stage error model
// Package export streams mixer output into an encoder.
//
// Run pulls blocks until the mixer reports 0, polling ctx between blocks.
// Failures come back as *StageError naming the init, write or finalize
// stage; a full disk also matches ErrDiskFull. Cancellation and failure
// share one cleanup path and differ only in the Result.
package export
