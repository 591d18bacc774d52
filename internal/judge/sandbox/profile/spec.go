package profile

import (
	"fmt"
	"strings"
	"time"

	appErr "codejudge/pkg/errors"

	"github.com/google/shlex"
)

const (
	defaultRunTimeout         = 2 * time.Second
	defaultCompileTimeout     = 10 * time.Second
	defaultJavaCompileTimeout = 5 * time.Second
)

// LanguageSpec defines how to compile and run a language.
// Command templates are split like a shell would split them, then placeholders are
// substituted per argument, so paths with spaces stay a single argument.
// Placeholders: {src} {bin} {workdir} {entry}.
type LanguageSpec struct {
	ID             string        `yaml:"id"`
	CompileCmdTpl  string        `yaml:"compileCmd"`
	RunCmdTpl      string        `yaml:"runCmd"`
	CompileTimeout time.Duration `yaml:"compileTimeout"`
	RunTimeout     time.Duration `yaml:"runTimeout"`
	Env            []string      `yaml:"env"`
}

// CompileEnabled reports whether the language has a compile step.
func (s LanguageSpec) CompileEnabled() bool {
	return strings.TrimSpace(s.CompileCmdTpl) != ""
}

// DefaultSpecs returns the built-in toolchain commands.
func DefaultSpecs() map[Language]LanguageSpec {
	return map[Language]LanguageSpec{
		LanguageC: {
			ID:             "c",
			CompileCmdTpl:  "gcc {src} -O2 -std=c11 -o {bin}",
			RunCmdTpl:      "{bin}",
			CompileTimeout: defaultCompileTimeout,
			RunTimeout:     defaultRunTimeout,
		},
		LanguageCPP: {
			ID:             "cpp",
			CompileCmdTpl:  "g++ {src} -O2 -std=c++17 -o {bin}",
			RunCmdTpl:      "{bin}",
			CompileTimeout: defaultCompileTimeout,
			RunTimeout:     defaultRunTimeout,
		},
		LanguagePython: {
			ID:         "py",
			RunCmdTpl:  "python3 {src}",
			RunTimeout: defaultRunTimeout,
		},
		LanguageJava: {
			ID:             "java",
			CompileCmdTpl:  "javac {entry}.java",
			RunCmdTpl:      "java -cp {workdir} {entry}",
			CompileTimeout: defaultJavaCompileTimeout,
			RunTimeout:     defaultRunTimeout,
		},
	}
}

// Registry resolves a Language to its LanguageSpec.
type Registry struct {
	specs map[Language]LanguageSpec
}

// NewRegistry starts from DefaultSpecs and applies overrides keyed by language tag.
// Empty fields in an override keep the default.
func NewRegistry(overrides []LanguageSpec) (*Registry, error) {
	specs := DefaultSpecs()
	for _, override := range overrides {
		lang, err := ParseLanguage(override.ID)
		if err != nil || strings.TrimSpace(override.ID) == "" {
			return nil, appErr.ValidationError("language.id", fmt.Sprintf("unknown language %q", override.ID))
		}
		base := specs[lang]
		if override.CompileCmdTpl != "" {
			base.CompileCmdTpl = override.CompileCmdTpl
		}
		if override.RunCmdTpl != "" {
			base.RunCmdTpl = override.RunCmdTpl
		}
		if override.CompileTimeout > 0 {
			base.CompileTimeout = override.CompileTimeout
		}
		if override.RunTimeout > 0 {
			base.RunTimeout = override.RunTimeout
		}
		if len(override.Env) > 0 {
			base.Env = override.Env
		}
		specs[lang] = base
	}
	for lang, s := range specs {
		if strings.TrimSpace(s.RunCmdTpl) == "" {
			return nil, appErr.ValidationError("language.runCmd", fmt.Sprintf("%s: required", lang))
		}
		if lang.Compiled() && !s.CompileEnabled() {
			return nil, appErr.ValidationError("language.compileCmd", fmt.Sprintf("%s: required", lang))
		}
	}
	return &Registry{specs: specs}, nil
}

// Spec returns the toolchain settings for lang.
func (r *Registry) Spec(lang Language) (LanguageSpec, error) {
	s, ok := r.specs[lang]
	if !ok {
		return LanguageSpec{}, appErr.Newf(appErr.LanguageNotSupported, "Unsupported language: %s", lang)
	}
	return s, nil
}

// CommandVars are the values substituted into command templates.
type CommandVars struct {
	Src     string
	Bin     string
	WorkDir string
	Entry   string
}

// BuildCommand expands a command template into argv.
func BuildCommand(tpl string, vars CommandVars) ([]string, error) {
	tokens, err := shlex.Split(tpl)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command template failed")
	}
	if len(tokens) == 0 {
		return nil, appErr.ValidationError("command", "empty template")
	}
	replacer := strings.NewReplacer(
		"{src}", vars.Src,
		"{bin}", vars.Bin,
		"{workdir}", vars.WorkDir,
		"{entry}", vars.Entry,
	)
	argv := make([]string, 0, len(tokens))
	for _, token := range tokens {
		argv = append(argv, replacer.Replace(token))
	}
	return argv, nil
}
