package filter

import (
	"path/filepath"
	"strings"
	"time"
)

// FileMeta is the metadata IsEligible needs about a file.
type FileMeta struct {
	// Path is the absolute path to the file.
	Path string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime time.Time

	// IsDir is set for directories.
	IsDir bool
}

// Ext returns the lower-case extension without the leading dot.
func (m FileMeta) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(m.Path)), ".")
}

// ExtensionGroups maps group names usable in extension lists to the
// extensions they expand to. Group names start with "@" so they never
// collide with a literal extension.
var ExtensionGroups = map[string][]string{
	"@temp":   {"tmp", "temp", "bak", "old", "swp"},
	"@log":    {"log", "etl", "trace"},
	"@dump":   {"dmp", "mdmp", "hdmp", "core"},
	"@cache":  {"cache", "dat", "idx"},
	"@update": {"cab", "msu", "psf", "esd"},
}
