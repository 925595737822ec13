// ABOUTME: Package documentation for the project command layer
// ABOUTME: Describes transactions, the clipboard and undo behaviour
// Package project is the editing command layer. A Project owns a track
// list, a time selection and an undo history; every command that changes
// tracks runs on a clone and either commits with one history state or
// leaves the project untouched.
//
// Example:
//
//	p := project.New(nil, nil, project.Config{Rate: 44100})
//	err := p.ImportFiles(ctx, "take1.wav")
//	p.Tracks().SetSelected(0, true)
//	err = p.SetSelection(0, 1)
//	err = p.Cut()
//	err = p.Undo()
package project
