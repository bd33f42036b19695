// ABOUTME: Version information for the speechbridge client
// ABOUTME: Product identity sent to the speech service
package version

const (
	// Version is the client release
	Version = "0.3.0"

	// Product is the client name
	Product = "SpeechBridge Client"

	// Manufacturer is the publisher
	Manufacturer = "SpeechBridge"
)

// UserAgent identifies the client on outgoing connections
func UserAgent() string {
	return "speechbridge-go/" + Version
}
