package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"codejudge/internal/cli/command"
	httpclient "codejudge/internal/cli/http"
	"codejudge/internal/cli/state"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const prompt = "codejudge> "

// Session holds REPL state.
type Session struct {
	client       *httpclient.Client
	commands     map[string]command.Command
	sessionState *state.SessionState
	statePath    string
	prettyJSON   bool
	out          io.Writer
}

func New(client *httpclient.Client, commands map[string]command.Command, sessionState *state.SessionState, statePath string, prettyJSON bool) *Session {
	return &Session{
		client:       client,
		commands:     commands,
		sessionState: sessionState,
		statePath:    statePath,
		prettyJSON:   prettyJSON,
		out:          io.Discard,
	}
}

// Run reads commands until exit, EOF or a second interrupt.
func (s *Session) Run(ctx context.Context, historyPath string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyPath,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer func() { _ = rl.Close() }()
	s.out = rl.Stdout()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		done, handled := s.handleSystemCommand(line)
		if done {
			s.printLine("bye")
			return nil
		}
		if handled {
			continue
		}
		if err := s.Execute(ctx, line, func(label string) (string, error) {
			return promptValue(rl, label)
		}); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("run"),
		readline.PcItem("submit"),
		readline.PcItem("set", readline.PcItem("base"), readline.PcItem("timeout"), readline.PcItem("cookie")),
		readline.PcItem("show", readline.PcItem("cookie"), readline.PcItem("config")),
		readline.PcItem("help"),
		readline.PcItem("reset"),
		readline.PcItem("exit"),
	)
}

func promptValue(rl *readline.Instance, label string) (string, error) {
	rl.SetPrompt(label + ": ")
	defer rl.SetPrompt(prompt)
	line, err := rl.Readline()
	if err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// SetOutput redirects what the session prints.
func (s *Session) SetOutput(w io.Writer) {
	s.out = w
}

// handleSystemCommand reports whether the session should end and whether line was consumed.
func (s *Session) handleSystemCommand(line string) (bool, bool) {
	switch line {
	case "exit", "quit":
		return true, true
	case "help":
		s.printHelp()
		return false, true
	case "reset":
		*s.sessionState = state.SessionState{}
		if err := state.Clear(s.statePath); err != nil {
			s.printLine("reset failed: %v", err)
			return false, true
		}
		s.printLine("session state cleared")
		return false, true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return false, true
	}
	if strings.HasPrefix(line, "show ") {
		s.handleShow(strings.TrimSpace(strings.TrimPrefix(line, "show ")))
		return false, true
	}
	return false, false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|timeout|cookie")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8000")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.sessionState.BaseURL = s.client.BaseURL()
		s.sessionState.UpdatedAt = time.Now()
		if err := state.Save(s.statePath, *s.sessionState); err != nil {
			s.printLine("save base failed: %v", err)
			return
		}
		s.printLine("base set to %s", s.client.BaseURL())
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 30s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "cookie":
		s.sessionState.Cookie = ""
		if len(parts) > 1 {
			s.sessionState.Cookie = NormalizeCookie(strings.Join(parts[1:], " "))
		}
		s.sessionState.UpdatedAt = time.Now()
		if err := state.Save(s.statePath, *s.sessionState); err != nil {
			s.printLine("save cookie failed: %v", err)
			return
		}
		if s.sessionState.Cookie == "" {
			s.printLine("cookie cleared")
			return
		}
		s.printLine("cookie updated")
	default:
		s.printLine("unknown set command")
	}
}

// NormalizeCookie accepts either a full cookie header or a bare session token.
func NormalizeCookie(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "=") {
		return raw
	}
	return "token=" + raw
}

func (s *Session) handleShow(args string) {
	switch args {
	case "cookie":
		cookie := s.sessionState.Cookie
		if cookie == "" {
			s.printLine("cookie: <empty>")
			return
		}
		if len(cookie) > 16 {
			cookie = cookie[:10] + "..." + cookie[len(cookie)-4:]
		}
		s.printLine("cookie: %s", cookie)
	case "config":
		s.printLine("base: %s", s.client.BaseURL())
		s.printLine("timeout: %s", s.client.Timeout())
		s.printLine("statePath: %s", s.statePath)
	default:
		s.printLine("usage: show cookie|config")
	}
}

// Execute runs one run/submit line. ask is called for required fields left out.
func (s *Session) Execute(ctx context.Context, line string, ask func(label string) (string, error)) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	return s.ExecuteArgs(ctx, tokens, ask)
}

// ExecuteArgs is Execute for an already split command line.
func (s *Session) ExecuteArgs(ctx context.Context, tokens []string, ask func(label string) (string, error)) error {
	if len(tokens) == 0 {
		return nil
	}
	cmd, ok := s.commands[tokens[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", tokens[0])
	}
	params, err := command.ParseArgs(tokens[1:])
	if err != nil {
		return err
	}
	params.Canonicalize(cmd.Fields)
	if err := promptMissing(cmd, params, ask); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(cmd, resp)
	return nil
}

func promptMissing(cmd command.Command, params command.Params, ask func(string) (string, error)) error {
	for _, field := range cmd.Fields {
		if !field.Required || params.Get(field.Name) != "" {
			continue
		}
		if ask == nil {
			return fmt.Errorf("%s is required", field.Name)
		}
		value, err := ask(field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

type runResponse struct {
	Output *string `json:"output"`
}

type submitResponse struct {
	Verdict        string `json:"verdict"`
	TestCaseNumber int    `json:"testCaseNumber"`
	FailedTestCase *struct {
		Input          string `json:"input"`
		ExpectedOutput string `json:"expectedOutput"`
		ActualOutput   string `json:"actualOutput"`
	} `json:"failedTestCase"`
}

func (s *Session) renderResponse(cmd command.Command, resp httpclient.ResponseInfo) {
	if resp.TraceID != "" {
		s.printLine("HTTP %d (%s) trace=%s", resp.StatusCode, resp.Duration.Round(time.Millisecond), resp.TraceID)
	} else {
		s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration.Round(time.Millisecond))
	}
	if len(resp.Body) == 0 {
		return
	}
	if resp.StatusCode == 200 {
		switch cmd.Name {
		case "run":
			var out runResponse
			if err := json.Unmarshal(resp.Body, &out); err == nil && out.Output != nil {
				s.printLine("%s", *out.Output)
				return
			}
		case "submit":
			var out submitResponse
			if err := json.Unmarshal(resp.Body, &out); err == nil && out.Verdict != "" {
				s.printLine("%s", out.Verdict)
				if out.FailedTestCase != nil {
					s.printLine("test case #%d", out.TestCaseNumber)
					s.printLine("input:\n%s", out.FailedTestCase.Input)
					s.printLine("expected:\n%s", out.FailedTestCase.ExpectedOutput)
					s.printLine("actual:\n%s", out.FailedTestCase.ActualOutput)
				}
				return
			}
		}
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) printHelp() {
	s.printLine("usage: run|submit key=value ...")
	for _, name := range []string{"run", "submit"} {
		if cmd, ok := s.commands[name]; ok {
			s.printLine("  %s", cmd.Usage)
		}
	}
	s.printLine("system: help | exit | reset | set base|timeout|cookie | show cookie|config")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}
