// Package identity resolves the local machine's hostname, used to build
// the default gPodder sync device id.
package identity

import "os"

// fallbackHostname is used when the OS hostname cannot be read.
const fallbackHostname = "podliner"

// Hostname returns the system hostname, or fallbackHostname if it cannot
// be determined.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return fallbackHostname
	}
	return h
}
