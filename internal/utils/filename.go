// Package utils holds small helpers shared by the HTTP and ingestion layers.
package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const maxFilenameLength = 120

var (
	// Characters invalid in file names on common filesystems, plus control characters.
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	spaceRuns            = regexp.MustCompile(`\s+`)
)

// SanitizeFilename reduces a client-supplied file name to something safe to
// store on disk. Directory components are dropped, whitespace runs become a
// single underscore and invalid characters are removed. The extension is
// kept when the base name has to be truncated.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = strings.TrimSpace(name)
	// Whitespace goes first: tabs and newlines fall inside the control range.
	name = spaceRuns.ReplaceAllString(name, "_")
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, ".")

	if name == "" {
		return "upload"
	}

	if len(name) > maxFilenameLength {
		ext := filepath.Ext(name)
		if len(ext) >= maxFilenameLength {
			ext = ""
		}
		name = name[:maxFilenameLength-len(ext)] + ext
	}

	return name
}

// StoredUploadName prefixes the sanitized name with a timestamp so that
// repeated uploads of the same file never collide.
func StoredUploadName(original string, now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), SanitizeFilename(original))
}
