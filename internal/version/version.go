// ABOUTME: Version and product identification constants
// ABOUTME: Reported in the control handshake and mDNS records
package version

const (
	Version      = "0.3.0"
	Product      = "Resonate Router"
	Manufacturer = "Resonate"
)

// String is the product and version as shown in logs and routerctl
func String() string {
	return Product + " " + Version
}
