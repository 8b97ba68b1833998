// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import "fmt"

// Build metadata, set at link time with -ldflags "-X".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// UserAgent identifies nook to outbound services such as embedding providers.
func UserAgent() string {
	return fmt.Sprintf("nook/%s (%s)", Version, ShortSha())
}

// ShortSha returns the first seven characters of the build commit.
func ShortSha() string {
	return TruncateRunes(Sha, 7)
}
