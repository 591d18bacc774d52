// Package profile defines the supported languages and how each is compiled and run.
package profile

import (
	"strings"

	appErr "codejudge/pkg/errors"
)

// Language is the closed set of languages the judge can execute.
type Language int

const (
	LanguageUnknown Language = iota
	LanguageC
	LanguageCPP
	LanguagePython
	LanguageJava
)

// DefaultLanguage is used when a request carries no language tag.
const DefaultLanguage = LanguageCPP

// Languages lists every supported language in a stable order.
var Languages = []Language{LanguageC, LanguageCPP, LanguagePython, LanguageJava}

// String returns the canonical tag.
func (l Language) String() string {
	switch l {
	case LanguageC:
		return "c"
	case LanguageCPP:
		return "cpp"
	case LanguagePython:
		return "py"
	case LanguageJava:
		return "java"
	default:
		return "unknown"
	}
}

// Extension is the source file extension without the dot.
func (l Language) Extension() string {
	switch l {
	case LanguageC:
		return "c"
	case LanguageCPP:
		return "cpp"
	case LanguagePython:
		return "py"
	case LanguageJava:
		return "java"
	default:
		return ""
	}
}

// Compiled reports whether the language produces a native binary in the outputs dir.
func (l Language) Compiled() bool {
	return l == LanguageC || l == LanguageCPP
}

// NeedsEntryPoint reports whether the source file name must match a declared type.
func (l Language) NeedsEntryPoint() bool {
	return l == LanguageJava
}

// ParseLanguage maps a request tag and its aliases onto a Language.
func ParseLanguage(tag string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "":
		return DefaultLanguage, nil
	case "c":
		return LanguageC, nil
	case "cpp", "c++":
		return LanguageCPP, nil
	case "py", "python":
		return LanguagePython, nil
	case "java":
		return LanguageJava, nil
	default:
		return LanguageUnknown, appErr.Newf(appErr.LanguageNotSupported, "Unsupported language: %s", tag)
	}
}
