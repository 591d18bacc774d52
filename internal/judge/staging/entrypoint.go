package staging

import "regexp"

// DefaultEntryPoint is used when no class declaration is found.
const DefaultEntryPoint = "Main"

// EntryPointDetector derives the type name a name-matched source file must be saved under.
type EntryPointDetector interface {
	Detect(source string) string
}

var (
	publicClassPattern = regexp.MustCompile(`\bpublic\s+class\s+([A-Za-z_][A-Za-z0-9_]*)\b`)
	anyClassPattern    = regexp.MustCompile(`\bclass\s+([A-Za-z_][A-Za-z0-9_]*)\b`)
)

// PatternDetector scans the source text for the first class declaration.
// It is a heuristic: declarations inside comments or strings also match.
type PatternDetector struct{}

// Detect returns the first public class name, else the first class name, else Main.
func (PatternDetector) Detect(source string) string {
	if m := publicClassPattern.FindStringSubmatch(source); len(m) > 1 {
		return m[1]
	}
	if m := anyClassPattern.FindStringSubmatch(source); len(m) > 1 {
		return m[1]
	}
	return DefaultEntryPoint
}
