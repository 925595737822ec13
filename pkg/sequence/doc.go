// ABOUTME: Block sequence package
// ABOUTME: One channel of audio as an ordered list of shared sample blocks
// Package sequence represents a channel of audio as an ordered list of
// reference-counted sample blocks.
//
// Edits never modify a block. An edit confined to [a, b) splits at most the
// two blocks straddling a and b; every block outside the range keeps its
// identity, so snapshots held by undo history share storage with the live
// sequence.
package sequence
