// Package buildinfo carries values stamped in at link time, for
// example:
//
//	go build -ldflags "-X github.com/sda-platform/dronebridge/pkg/buildinfo.Version=1.2.0"
package buildinfo

var (
	// Version is the release number for this build
	Version = "dev"

	// Commit is the specific git hash
	Commit = "UNKNOWN"

	// BuildDate is the build timestamp
	BuildDate = "UNKNOWN"
)
