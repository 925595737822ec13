// ABOUTME: Effect package documentation
// ABOUTME: Describes the initialize/block/finalize lifecycle
// Package effect applies block processors to wave track ranges.
//
// Apply calls ProcessInitialize once, ProcessBlock for each block of the
// range and ProcessFinalize at the end. Results are written back through
// the clips, so only blocks that change are copied.
package effect
