// Package buildinfo reports the version stamped into the binary at link
// time.
package buildinfo

import (
	"fmt"
	"io"
)

// Set via -ldflags "-X github.com/dkravets/kitafeed/internal/buildinfo.buildVersion=..."
var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

// PrintBuildData writes the build metadata to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", buildVersion)
	fmt.Fprintf(w, "Build date: %s\n", buildDate)
	fmt.Fprintf(w, "Build commit: %s\n", buildCommit)
}
