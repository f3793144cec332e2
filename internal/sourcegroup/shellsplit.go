package sourcegroup

import (
	"fmt"
	"strings"
)

// splitCommandLine splits a POSIX shell command line into arguments. It
// understands single quotes, double quotes and backslash escapes; it does
// not expand variables or globs.
func splitCommandLine(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			if quote == '"' && r != '"' && r != '\\' && r != '$' && r != '`' && r != '\n' {
				cur.WriteRune('\\')
			}
			if r != '\n' {
				cur.WriteRune(r)
			}
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			inArg = true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if escaped {
		return nil, fmt.Errorf("command line ends with a backslash")
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in command line", quote)
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
