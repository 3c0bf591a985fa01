// ABOUTME: Version constants for the Evelyn client
// ABOUTME: Identifies the product in logs and diagnostics
package version

const (
	// Product is the human-readable application name.
	Product = "Evelyn"

	// Version is the software version.
	Version = "0.1.0"
)
