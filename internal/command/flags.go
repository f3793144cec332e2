package command

import "path/filepath"

// StandardFlag returns "-std=<standard>" or "" when standard is empty.
func StandardFlag(standard string) string {
	if standard == "" {
		return ""
	}
	return "-std=" + standard
}

// SystemIncludeFlags emits "-isystem <path>" pairs.
func SystemIncludeFlags(paths ...[]string) []string {
	return pairFlags("-isystem", paths...)
}

// FrameworkFlags emits "-iframework <path>" pairs.
func FrameworkFlags(paths ...[]string) []string {
	return pairFlags("-iframework", paths...)
}

func pairFlags(flag string, lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, p := range list {
			out = append(out, flag, p)
		}
	}
	return out
}

// PchFileName is the file a precompiled header of input is written to
// inside dir.
func PchFileName(dir, input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	return filepath.Join(dir, base[:len(base)-len(ext)]+".pch")
}

// PchFlags returns the flags that make an indexer use a precompiled header.
func PchFlags(pchFile string) []string {
	if pchFile == "" {
		return nil
	}
	return []string{"-fallow-pch-with-compiler-errors", "-include-pch", pchFile}
}

// StripIncludePch removes "-include-pch <file>" and "-include-pch=<file>"
// from flags. It reports whether one was found.
func StripIncludePch(flags []string) ([]string, bool) {
	out := make([]string, 0, len(flags))
	found := false
	for i := 0; i < len(flags); i++ {
		f := flags[i]
		switch {
		case f == "-include-pch":
			found = true
			i++
		case len(f) > len("-include-pch=") && f[:len("-include-pch=")] == "-include-pch=":
			found = true
		case f == "-fallow-pch-with-compiler-errors":
		default:
			out = append(out, f)
		}
	}
	return out, found
}

// AppendNonEmpty appends every non-empty value.
func AppendNonEmpty(flags []string, values ...string) []string {
	for _, v := range values {
		if v != "" {
			flags = append(flags, v)
		}
	}
	return flags
}
