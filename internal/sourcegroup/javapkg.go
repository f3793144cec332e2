package sourcegroup

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	javaBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	javaLineComment  = regexp.MustCompile(`//[^\n]*`)
	javaPackageDecl  = regexp.MustCompile(`(?m)^\s*(?:@[\w.]+(?:\([^)]*\))?\s*)*package\s+([\p{L}_$][\p{L}\p{N}_$]*(?:\s*\.\s*[\p{L}_$][\p{L}\p{N}_$]*)*)\s*;`)
)

// JavaPackageName returns the package declared by a Java compilation unit,
// or "" for the default package.
func JavaPackageName(src []byte) string {
	src = javaBlockComment.ReplaceAll(src, nil)
	src = javaLineComment.ReplaceAll(src, nil)
	m := javaPackageDecl.FindSubmatch(src)
	if m == nil {
		return ""
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(string(m[1]), ".", " ")), ".")
}

// JavaPackageRoot returns the directory a source file's package hierarchy
// starts in. It reports false when the file lies in the default package or
// its directories do not mirror the package name.
func JavaPackageRoot(file, pkg string) (string, bool) {
	if pkg == "" {
		return "", false
	}
	dir := filepath.Dir(file)
	parts := strings.Split(pkg, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		if filepath.Base(dir) != parts[i] {
			return "", false
		}
		dir = filepath.Dir(dir)
	}
	return dir, true
}

// JavaPackageRoots detects the package roots of files, sorted and unique.
// Unreadable files are skipped.
func JavaPackageRoots(files []string) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		root, ok := JavaPackageRoot(f, JavaPackageName(src))
		if !ok || seen[root] {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}
