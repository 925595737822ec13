// ABOUTME: Version constants for the editor
// ABOUTME: Written into exported files as the encoding software tag
package version

const (
	Version      = "0.3.0"
	Product      = "Resonate Edit"
	Manufacturer = "Resonate"
)

// Software is the value of the software tag in exported files
func Software() string {
	return Product + " " + Version
}
