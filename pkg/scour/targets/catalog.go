// Package targets maps logical clean targets such as "user temp" or
// "Chrome cache" to concrete root directories on the current machine.
//
// Resolution depends only on the environment and the filesystem, both of
// which are injectable so that catalogs for other platforms can be
// exercised in tests. The resolver never creates directories.
package targets

// Kind identifies a logical clean target.
type Kind string

// Known target kinds.
const (
	UserTemp       Kind = "user-temp"
	SystemTemp     Kind = "system-temp"
	Prefetch       Kind = "prefetch"
	UpdateCache    Kind = "update-cache"
	ChromeCache    Kind = "chrome-cache"
	EdgeCache      Kind = "edge-cache"
	BraveCache     Kind = "brave-cache"
	FirefoxCache   Kind = "firefox-cache"
	ThumbnailCache Kind = "thumbnail-cache"
	ErrorReports   Kind = "error-reports"

	// Custom marks targets defined by the user in configuration.
	Custom Kind = "custom"
)

// Category groups related kinds.
type Category string

// Target categories.
const (
	CategorySystem  Category = "system"
	CategoryBrowser Category = "browser"
	CategoryUser    Category = "user"
)

// Definition describes a kind and how to find its roots.
type Definition struct {
	Kind        Kind
	Label       string
	Description string
	Category    Category

	// RequiresAdmin is set for roots that normally need elevation to clean.
	RequiresAdmin bool

	// candidates returns the paths to probe, in priority order. Paths may
	// contain glob metacharacters.
	candidates func(e *env) []string
}

// catalog lists every kind in display order.
var catalog = []Definition{
	{
		Kind:        UserTemp,
		Label:       "User temp",
		Description: "Per-user temporary files",
		Category:    CategoryUser,
		candidates:  userTempPaths,
	},
	{
		Kind:          SystemTemp,
		Label:         "System temp",
		Description:   "Machine-wide temporary files",
		Category:      CategorySystem,
		RequiresAdmin: true,
		candidates:    systemTempPaths,
	},
	{
		Kind:          Prefetch,
		Label:         "Prefetch",
		Description:   "Windows application prefetch traces",
		Category:      CategorySystem,
		RequiresAdmin: true,
		candidates: func(e *env) []string {
			if !e.windows() {
				return nil
			}
			return []string{e.join(e.winDir(), "Prefetch")}
		},
	},
	{
		Kind:          UpdateCache,
		Label:         "Update cache",
		Description:   "Downloaded Windows Update packages",
		Category:      CategorySystem,
		RequiresAdmin: true,
		candidates: func(e *env) []string {
			if !e.windows() {
				return nil
			}
			return []string{e.join(e.winDir(), "SoftwareDistribution", "Download")}
		},
	},
	{
		Kind:        ChromeCache,
		Label:       "Chrome cache",
		Description: "Google Chrome disk, code and GPU caches",
		Category:    CategoryBrowser,
		candidates: func(e *env) []string {
			return e.chromiumProfile(
				[]string{"Google", "Chrome", "User Data"},
				[]string{"Google", "Chrome"},
				[]string{"google-chrome"},
			)
		},
	},
	{
		Kind:        EdgeCache,
		Label:       "Edge cache",
		Description: "Microsoft Edge disk, code and GPU caches",
		Category:    CategoryBrowser,
		candidates: func(e *env) []string {
			return e.chromiumProfile(
				[]string{"Microsoft", "Edge", "User Data"},
				[]string{"Microsoft Edge"},
				[]string{"microsoft-edge"},
			)
		},
	},
	{
		Kind:        BraveCache,
		Label:       "Brave cache",
		Description: "Brave disk, code and GPU caches",
		Category:    CategoryBrowser,
		candidates: func(e *env) []string {
			return e.chromiumProfile(
				[]string{"BraveSoftware", "Brave-Browser", "User Data"},
				[]string{"BraveSoftware", "Brave-Browser"},
				[]string{"BraveSoftware", "Brave-Browser"},
			)
		},
	},
	{
		Kind:        FirefoxCache,
		Label:       "Firefox cache",
		Description: "Mozilla Firefox cache2 in every profile",
		Category:    CategoryBrowser,
		candidates: func(e *env) []string {
			switch {
			case e.windows():
				return []string{e.join(e.localAppData(), "Mozilla", "Firefox", "Profiles", "*", "cache2")}
			case e.goos == "darwin":
				return []string{e.join(e.cacheHome, "Firefox", "Profiles", "*", "cache2")}
			default:
				return []string{e.join(e.cacheHome, "mozilla", "firefox", "*", "cache2")}
			}
		},
	},
	{
		Kind:        ThumbnailCache,
		Label:       "Thumbnail cache",
		Description: "Explorer and desktop thumbnail databases",
		Category:    CategoryUser,
		candidates: func(e *env) []string {
			switch {
			case e.windows():
				return []string{e.join(e.localAppData(), "Microsoft", "Windows", "Explorer")}
			case e.goos == "darwin":
				return nil
			default:
				return []string{e.join(e.cacheHome, "thumbnails")}
			}
		},
	},
	{
		Kind:        ErrorReports,
		Label:       "Error reports",
		Description: "Crash dumps and error reporting archives",
		Category:    CategorySystem,
		candidates: func(e *env) []string {
			switch {
			case e.windows():
				return []string{
					e.join(e.programData(), "Microsoft", "Windows", "WER", "ReportArchive"),
					e.join(e.programData(), "Microsoft", "Windows", "WER", "ReportQueue"),
					e.join(e.localAppData(), "Microsoft", "Windows", "WER"),
				}
			case e.goos == "darwin":
				return []string{e.join(e.home, "Library", "Logs", "DiagnosticReports")}
			default:
				return []string{"/var/crash"}
			}
		},
	},
}

// chromiumCaches are the per-profile cache directories of Chromium browsers.
var chromiumCaches = []string{"Cache", "Code Cache", "GPUCache"}

func userTempPaths(e *env) []string {
	if e.windows() {
		return []string{
			e.getenv("TEMP"),
			e.getenv("TMP"),
			e.join(e.localAppData(), "Temp"),
		}
	}
	if tmp := e.getenv("TMPDIR"); tmp != "" {
		return []string{tmp, "/tmp"}
	}
	return []string{"/tmp"}
}

func systemTempPaths(e *env) []string {
	if e.windows() {
		return []string{e.join(e.winDir(), "Temp")}
	}
	return []string{"/var/tmp"}
}

// Definitions returns the catalog in display order.
func Definitions() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Kinds returns every known kind in display order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(catalog))
	for _, d := range catalog {
		out = append(out, d.Kind)
	}
	return out
}

// Lookup returns the definition for kind.
func Lookup(kind Kind) (Definition, bool) {
	for _, d := range catalog {
		if d.Kind == kind {
			return d, true
		}
	}
	return Definition{}, false
}

// DefaultKinds are cleaned when no target is named. They mirror the two
// temp directories every Windows installation has.
func DefaultKinds() []Kind {
	return []Kind{UserTemp, SystemTemp}
}
