// ABOUTME: Sample block storage package
// ABOUTME: Immutable, reference-counted runs of float32 samples
// Package sampleblock stores audio as immutable blocks shared by reference.
//
// A block is created with one reference. Every owner that keeps it calls
// Retain, and every owner that drops it calls Release; the backend data is
// deleted exactly when the count reaches zero. Blocks that hold only zeros
// are marked silent and never reach the backend.
//
// Example:
//
//	store := sampleblock.NewMemoryStore()
//	b, err := store.Create(samples)
//	if err != nil {
//	    return err
//	}
//	defer b.Release()
package sampleblock
