package command

import (
	"strconv"
	"strings"

	"github.com/dshills/srcgroup/internal/settings"
)

// TemplateVars are the values substituted into a custom command template.
type TemplateVars struct {
	SourceFilePath   string
	DatabaseFilePath string
	ProjectFilePath  string
	StorageVersion   int
}

// Expand replaces the four placeholders of a custom command template.
// Substitution is literal and case-sensitive; other text, including
// unrecognized %{...} sequences, is left alone.
func Expand(template string, vars TemplateVars) string {
	r := strings.NewReplacer(
		settings.PlaceholderSourceFilePath, vars.SourceFilePath,
		settings.PlaceholderDatabaseFilePath, vars.DatabaseFilePath,
		settings.PlaceholderProjectFilePath, vars.ProjectFilePath,
		settings.PlaceholderStorageVersion, strconv.Itoa(vars.StorageVersion),
	)
	return r.Replace(template)
}
