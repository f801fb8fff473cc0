package filetree

import (
	"bufio"
	"strings"
)

// DefaultIgnorePatterns are applied when a directory has no .quillignore.
var DefaultIgnorePatterns = []string{
	".git/", ".gitignore", ".quillignore", "target/", "node_modules/",
}

// Ignore is a gitignore-subset matcher: literal paths, "name/" (directory),
// "*.ext" (suffix), "prefix*" (prefix), "prefix*suffix", and "*" (any).
type Ignore struct {
	patterns []string
}

func NewIgnore(patterns []string) *Ignore {
	return &Ignore{patterns: patterns}
}

// ParseIgnoreFile parses a .quillignore file's contents: one pattern per
// line, blank lines and "#"-prefixed comments skipped.
func ParseIgnoreFile(contents string) *Ignore {
	var patterns []string
	sc := bufio.NewScanner(strings.NewReader(contents))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return NewIgnore(patterns)
}

// Matches reports whether relative path p should be excluded; isDir marks p
// as a directory.
func (ig *Ignore) Matches(p string, isDir bool) bool {
	for _, pat := range ig.patterns {
		if matchOne(pat, p, isDir) {
			return true
		}
	}
	return false
}

func matchOne(pattern, p string, isDir bool) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "/") {
		dirName := strings.TrimSuffix(pattern, "/")
		if !isDir {
			// a dir-only pattern can still exclude files nested under it
			return strings.HasPrefix(p, dirName+"/")
		}
		return p == dirName || strings.HasPrefix(p, dirName+"/")
	}
	if strings.Contains(pattern, "*") {
		return globMatch(pattern, p) || globMatch(pattern, baseName(p))
	}
	return p == pattern || baseName(p) == pattern
}

func baseName(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}
