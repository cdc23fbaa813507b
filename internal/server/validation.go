package server

import (
	"path"
	"strings"
)

// sanitizeFilename reduces a client-supplied filename to a safe base name:
// path components are stripped, separators and control characters are
// replaced, and the result is capped. Returns "" when nothing usable
// remains, which callers must reject.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	// Strip any directory components, from either path convention.
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name = b.String()

	// A name of only dots or underscores carries no information.
	if strings.Trim(name, "._") == "" {
		return ""
	}

	const maxFilenameLen = 255
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	return name
}
