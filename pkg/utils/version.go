// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import "fmt"

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildInfo is the multi-line build description printed by "rehearse version".
func BuildInfo() string {
	return fmt.Sprintf("Version: %s\nSha: %s\nBuilt at: %s\n", Version, Sha, Buildtime)
}
