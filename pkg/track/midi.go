// ABOUTME: Standard MIDI file import into note tracks
// ABOUTME: Pairs note-on and note-off events and converts ticks to seconds
package track

import (
	"fmt"
	"path/filepath"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type noteKey struct {
	channel uint8
	key     uint8
}

type openNote struct {
	start    int64 // microseconds
	velocity uint8
}

// ReadMIDI loads every note of a standard MIDI file into one note track
func ReadMIDI(path string) (*NoteTrack, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}

	nt := NewNoteTrack()
	nt.SetName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	for _, tr := range s.Tracks {
		var ticks int64
		open := make(map[noteKey]openNote)

		for _, ev := range tr {
			ticks += int64(ev.Delta)
			msg := midi.Message(ev.Message)

			var channel, key, velocity uint8
			switch {
			case msg.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
				open[noteKey{channel, key}] = openNote{start: s.TimeAt(ticks), velocity: velocity}
			case msg.GetNoteOn(&channel, &key, &velocity), msg.GetNoteOff(&channel, &key, &velocity):
				k := noteKey{channel, key}
				on, ok := open[k]
				if !ok {
					continue
				}
				delete(open, k)
				end := s.TimeAt(ticks)
				nt.notes = append(nt.notes, Note{
					Start:    float64(on.start) / 1e6,
					Duration: float64(end-on.start) / 1e6,
					Channel:  channel,
					Key:      key,
					Velocity: on.velocity,
				})
			}
		}
	}

	nt.sort()
	return nt, nil
}
