// ABOUTME: Error helpers shared by the audio packages
// ABOUTME: Wraps unsupported format conditions into descriptive errors
package audio

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for bit depths or layouts no encoder handles
var ErrUnsupportedFormat = errors.New("unsupported audio format")

func errUnsupportedBits(bits int) error {
	return fmt.Errorf("%w: bit depth %d (supported: 16, 24, 32)", ErrUnsupportedFormat, bits)
}
