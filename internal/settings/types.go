package settings

// Type is the closed set of source group kinds. The string value is the tag
// written to the settings file.
type Type string

const (
	TypeCEmpty        Type = "C Source Group"
	TypeCppEmpty      Type = "C++ Source Group"
	TypeCxxCdb        Type = "C/C++ from Compilation Database"
	TypeCxxCodeblocks Type = "C/C++ from Code::Blocks"
	TypeCxxSonargraph Type = "C/C++ from Sonargraph"
	TypeJavaEmpty     Type = "Java Source Group"
	TypeJavaMaven     Type = "Java from Maven"
	TypeJavaGradle    Type = "Java from Gradle"
	TypePythonEmpty   Type = "Python Source Group"
	TypeCustomCommand Type = "Custom Command Source Group"
	TypeUnloadable    Type = "Unloadable Source Group"
)

// AllTypes lists every loadable type in display order.
var AllTypes = []Type{
	TypeCEmpty,
	TypeCppEmpty,
	TypeCxxCdb,
	TypeCxxCodeblocks,
	TypeCxxSonargraph,
	TypeJavaEmpty,
	TypeJavaMaven,
	TypeJavaGradle,
	TypePythonEmpty,
	TypeCustomCommand,
}

// ParseType maps an on-disk tag to a Type. Unknown tags map to
// TypeUnloadable and ok is false.
func ParseType(tag string) (t Type, ok bool) {
	for _, known := range AllTypes {
		if string(known) == tag {
			return known, true
		}
	}
	return TypeUnloadable, false
}

// Language is the language a source group indexes.
type Language string

const (
	LanguageC       Language = "c"
	LanguageCpp     Language = "cpp"
	LanguageJava    Language = "java"
	LanguagePython  Language = "python"
	LanguageUnknown Language = ""
)

// Language returns the language of sources in groups of type t.
func (t Type) Language() Language {
	switch t {
	case TypeCEmpty:
		return LanguageC
	case TypeCppEmpty, TypeCxxCdb, TypeCxxCodeblocks, TypeCxxSonargraph:
		return LanguageCpp
	case TypeJavaEmpty, TypeJavaMaven, TypeJavaGradle:
		return LanguageJava
	case TypePythonEmpty:
		return LanguagePython
	default:
		return LanguageUnknown
	}
}

// Status marks a group as taking part in indexing or not.
type Status string

const (
	StatusEnabled  Status = "enabled"
	StatusDisabled Status = "disabled"
)

// ParseStatus treats anything but "disabled" as enabled.
func ParseStatus(s string) Status {
	if s == string(StatusDisabled) {
		return StatusDisabled
	}
	return StatusEnabled
}
