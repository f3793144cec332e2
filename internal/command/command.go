package command

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Type discriminates the payload of a Command.
type Type string

const (
	TypeCxx    Type = "cxx"
	TypeJava   Type = "java"
	TypePython Type = "python"
	TypeCustom Type = "custom"
)

// Command describes the work needed to index one source file. Exactly one
// payload matching Type is set. Commands are plain data so they can be
// written to an indexer process.
type Command struct {
	Type           Type           `json:"type"`
	SourceFilePath string         `json:"source_file_path"`
	GroupID        string         `json:"group_id"`
	Cxx            *CxxPayload    `json:"cxx,omitempty"`
	Java           *JavaPayload   `json:"java,omitempty"`
	Python         *PythonPayload `json:"python,omitempty"`
	Custom         *CustomPayload `json:"custom,omitempty"`
}

// CxxPayload carries a native compiler invocation.
type CxxPayload struct {
	IndexedPaths     []string `json:"indexed_paths"`
	ExcludeFilters   []string `json:"exclude_filters,omitempty"`
	IncludeFilters   []string `json:"include_filters,omitempty"`
	WorkingDirectory string   `json:"working_directory"`
	CompilerFlags    []string `json:"compiler_flags"`
}

// JavaPayload carries a classpath and language standard.
type JavaPayload struct {
	LanguageStandard string   `json:"language_standard"`
	ClassPath        []string `json:"class_path"`
}

// PythonPayload carries the interpreter environment.
type PythonPayload struct {
	EnvironmentPath string `json:"environment_path,omitempty"`
	Verbose         bool   `json:"verbose,omitempty"`
}

// CustomPayload carries a fully substituted shell command.
type CustomPayload struct {
	Command       string `json:"command"`
	RunInParallel bool   `json:"run_in_parallel"`
}

// NewCxx builds a native command.
func NewCxx(groupID, sourceFile string, p CxxPayload) Command {
	return Command{Type: TypeCxx, SourceFilePath: sourceFile, GroupID: groupID, Cxx: &p}
}

// NewJava builds a JVM command.
func NewJava(groupID, sourceFile string, p JavaPayload) Command {
	return Command{Type: TypeJava, SourceFilePath: sourceFile, GroupID: groupID, Java: &p}
}

// NewPython builds a python command.
func NewPython(groupID, sourceFile string, p PythonPayload) Command {
	return Command{Type: TypePython, SourceFilePath: sourceFile, GroupID: groupID, Python: &p}
}

// NewCustom builds a custom shell command.
func NewCustom(groupID, sourceFile string, p CustomPayload) Command {
	return Command{Type: TypeCustom, SourceFilePath: sourceFile, GroupID: groupID, Custom: &p}
}

// Validate checks that the payload matches the type.
func (c Command) Validate() error {
	if c.SourceFilePath == "" {
		return fmt.Errorf("command has no source file")
	}
	set := 0
	for _, p := range []bool{c.Cxx != nil, c.Java != nil, c.Python != nil, c.Custom != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("command for %s must carry exactly one payload, has %d", c.SourceFilePath, set)
	}
	ok := (c.Type == TypeCxx && c.Cxx != nil) ||
		(c.Type == TypeJava && c.Java != nil) ||
		(c.Type == TypePython && c.Python != nil) ||
		(c.Type == TypeCustom && c.Custom != nil)
	if !ok {
		return fmt.Errorf("command for %s has type %q but a different payload", c.SourceFilePath, c.Type)
	}
	return nil
}

// Marshal encodes the command as JSON.
func (c Command) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal decodes and validates a JSON command.
func Unmarshal(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return Command{}, fmt.Errorf("failed to decode indexer command: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Command{}, err
	}
	return c, nil
}

// String renders the command one field per line.
func (c Command) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SourceFilePath: %s\n", c.SourceFilePath)
	fmt.Fprintf(&b, "\tType: %s\n", c.Type)
	switch {
	case c.Cxx != nil:
		for _, p := range c.Cxx.IndexedPaths {
			fmt.Fprintf(&b, "\tIndexedPath: %s\n", p)
		}
		for _, f := range c.Cxx.ExcludeFilters {
			fmt.Fprintf(&b, "\tExcludeFilter: %s\n", f)
		}
		for _, f := range c.Cxx.IncludeFilters {
			fmt.Fprintf(&b, "\tIncludeFilter: %s\n", f)
		}
		fmt.Fprintf(&b, "\tWorkingDirectory: %s\n", c.Cxx.WorkingDirectory)
		for _, f := range c.Cxx.CompilerFlags {
			fmt.Fprintf(&b, "\tCompilerFlag: %s\n", f)
		}
	case c.Java != nil:
		fmt.Fprintf(&b, "\tLanguageStandard: %s\n", c.Java.LanguageStandard)
		for _, p := range c.Java.ClassPath {
			fmt.Fprintf(&b, "\tClassPath: %s\n", p)
		}
	case c.Python != nil:
		fmt.Fprintf(&b, "\tEnvironmentPath: %s\n", c.Python.EnvironmentPath)
	case c.Custom != nil:
		fmt.Fprintf(&b, "\tCommand: %s\n", c.Custom.Command)
		fmt.Fprintf(&b, "\tRunInParallel: %t\n", c.Custom.RunInParallel)
	}
	return b.String()
}

// SortBySource orders commands by source file path.
func SortBySource(cmds []Command) {
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].SourceFilePath < cmds[j].SourceFilePath })
}

// Render concatenates String of every command.
func Render(cmds []Command) string {
	var b strings.Builder
	for _, c := range cmds {
		b.WriteString(c.String())
	}
	return b.String()
}
