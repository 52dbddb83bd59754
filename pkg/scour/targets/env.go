package targets

import (
	"path/filepath"
	"strings"
)

// env is the view of the machine that candidate functions see.
type env struct {
	goos      string
	home      string
	cacheHome string
	getenv    func(string) string
}

func (e *env) windows() bool {
	return e.goos == "windows"
}

// join joins path elements, returning "" if the first element is empty so
// that unset variables never resolve relative to the working directory.
func (e *env) join(elem ...string) string {
	if len(elem) == 0 || elem[0] == "" {
		return ""
	}
	return filepath.Join(elem...)
}

func (e *env) winDir() string {
	if w := e.getenv("WINDIR"); w != "" {
		return w
	}
	if w := e.getenv("SystemRoot"); w != "" {
		return w
	}
	return `C:\Windows`
}

func (e *env) systemDrive() string {
	if d := e.getenv("SYSTEMDRIVE"); d != "" {
		return d + `\`
	}
	return `C:\`
}

func (e *env) localAppData() string {
	if l := e.getenv("LOCALAPPDATA"); l != "" {
		return l
	}
	return e.join(e.home, "AppData", "Local")
}

func (e *env) programData() string {
	if p := e.getenv("PROGRAMDATA"); p != "" {
		return p
	}
	return `C:\ProgramData`
}

func (e *env) programFiles() []string {
	out := []string{`C:\Program Files`, `C:\Program Files (x86)`}
	if p := e.getenv("PROGRAMFILES"); p != "" {
		out[0] = p
	}
	if p := e.getenv("PROGRAMFILES(X86)"); p != "" {
		out[1] = p
	}
	return out
}

// chromiumProfile expands the cache directories of a Chromium-based
// browser's default profile. Each argument is the path below the
// platform's base directory.
func (e *env) chromiumProfile(win, darwin, linux []string) []string {
	var base string
	switch {
	case e.windows():
		base = e.join(append([]string{e.localAppData()}, win...)...)
	case e.goos == "darwin":
		base = e.join(append([]string{e.cacheHome}, darwin...)...)
	default:
		base = e.join(append([]string{e.cacheHome}, linux...)...)
	}
	if base == "" {
		return nil
	}
	out := make([]string, 0, len(chromiumCaches))
	for _, c := range chromiumCaches {
		out = append(out, filepath.Join(base, "Default", c))
	}
	return out
}

// protectedRoots lists directories that are never offered as a clean root.
func (e *env) protectedRoots() []string {
	if e.windows() {
		w := e.winDir()
		sd := e.systemDrive()
		return append([]string{
			sd,
			w,
			filepath.Join(w, "System32"),
			filepath.Join(w, "SysWOW64"),
			filepath.Join(w, "WinSxS"),
			filepath.Join(w, "Installer"),
			filepath.Join(sd, "Users"),
			filepath.Join(sd, "Boot"),
			filepath.Join(sd, "EFI"),
			filepath.Join(sd, "Recovery"),
			e.programData(),
			e.home,
		}, e.programFiles()...)
	}
	return []string{
		"/", "/bin", "/boot", "/dev", "/etc", "/home", "/lib", "/lib64",
		"/opt", "/proc", "/root", "/sbin", "/sys", "/usr", "/var",
		"/System", "/Library", "/Applications", "/Users",
		e.home,
	}
}

// key normalizes a path for comparison. Windows paths compare
// case-insensitively.
func (e *env) key(path string) string {
	path = filepath.Clean(path)
	if e.windows() {
		path = strings.ToLower(strings.TrimRight(path, `\/`))
		if strings.HasSuffix(path, ":") {
			path += `\`
		}
	}
	return path
}

// isProtected reports whether path is one of the protected roots.
func (e *env) isProtected(path string) bool {
	k := e.key(path)
	for _, p := range e.protectedRoots() {
		if p != "" && e.key(p) == k {
			return true
		}
	}
	return false
}
