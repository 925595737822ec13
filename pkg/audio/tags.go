// ABOUTME: Metadata tags attached to exported audio
// ABOUTME: Ordered name/value pairs with case-insensitive canonical names
package audio

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Well-known tag names
const (
	TagTitle    = "TITLE"
	TagArtist   = "ARTIST"
	TagAlbum    = "ALBUM"
	TagTrack    = "TRACKNUMBER"
	TagYear     = "YEAR"
	TagGenre    = "GENRE"
	TagComments = "COMMENTS"
	TagSoftware = "SOFTWARE"
)

var upper = cases.Upper(language.Und)

// Tag is a single metadata entry
type Tag struct {
	Name  string
	Value string
}

// Tags is an ordered tag list; names are stored upper-cased
type Tags []Tag

// CanonicalTagName upper-cases a tag name
func CanonicalTagName(name string) string {
	return upper.String(name)
}

// Get returns the first value stored under name
func (t Tags) Get(name string) (string, bool) {
	name = CanonicalTagName(name)
	for _, tag := range t {
		if tag.Name == name {
			return tag.Value, true
		}
	}
	return "", false
}

// Set replaces the value for name or appends a new entry
func (t Tags) Set(name, value string) Tags {
	name = CanonicalTagName(name)
	for i := range t {
		if t[i].Name == name {
			t[i].Value = value
			return t
		}
	}
	return append(t, Tag{Name: name, Value: value})
}

// Metadata returns title, artist and album in the order sources report them
func (t Tags) Metadata() (title, artist, album string) {
	title, _ = t.Get(TagTitle)
	artist, _ = t.Get(TagArtist)
	album, _ = t.Get(TagAlbum)
	return title, artist, album
}
