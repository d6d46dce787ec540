package driver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocateHelper searches PATH from env (falling back to the process PATH when
// env has none) for an executable named name, like which(1). It returns ""
// when nothing is found.
func LocateHelper(name string, env map[string]string) string {
	if name == "" {
		return ""
	}
	if strings.ContainsRune(name, filepath.Separator) {
		if isExecutable(name) {
			return name
		}
		return ""
	}
	path, ok := env["PATH"]
	if !ok {
		path = os.Getenv("PATH")
	}
	for _, dir := range filepath.SplitList(path) {
		// Relative entries would resolve against whatever the cwd happens to be.
		if dir == "" || !filepath.IsAbs(dir) {
			continue
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate
		}
	}
	return ""
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular() && fi.Mode().Perm()&0o111 != 0
}

// MergeEnv overlays overrides on base ("KEY=value" entries) and returns a
// sorted environment with one entry per key.
func MergeEnv(base []string, overrides map[string]string) []string {
	m := make(map[string]string, len(base)+len(overrides))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		m[k] = v
	}
	for k, v := range overrides {
		m[k] = v
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
