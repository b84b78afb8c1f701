// ABOUTME: Version constants for mahub-go
// ABOUTME: Reported by the CLI and sent as the HTTP user agent
package version

// Version is overridden at build time with -ldflags "-X ...version.Version=..."
var Version = "0.1.0"

const (
	Product      = "mahub-go"
	Manufacturer = "Resonate Protocol"
)

// UserAgent identifies the client in HTTP requests
func UserAgent() string {
	return Product + "/" + Version
}
