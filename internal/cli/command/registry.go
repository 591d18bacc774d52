package command

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Registry returns the CLI commands keyed by name.
func Registry() map[string]Command {
	commands := []Command{
		{
			Name:   "run",
			Method: http.MethodPost,
			Path:   "/run",
			Usage:  "run lang=cpp file=./main.cpp input=\"1 2\" | input_file=./in.txt",
			Fields: []Field{
				{Name: "file", Aliases: []string{"source", "source_file"}, Prompt: "source file", Type: FieldFile, Required: true},
				{Name: "lang", Aliases: []string{"language"}, Prompt: "language", Type: FieldString},
				{Name: "input", Aliases: []string{"stdin"}, Prompt: "stdin", Type: FieldString},
				{Name: "input_file", Prompt: "stdin file", Type: FieldFile},
			},
		},
		{
			Name:   "submit",
			Method: http.MethodPost,
			Path:   "/submit",
			Usage:  "submit lang=py file=./sol.py problem=<problem id>",
			Fields: []Field{
				{Name: "file", Aliases: []string{"source", "source_file"}, Prompt: "source file", Type: FieldFile, Required: true},
				{Name: "lang", Aliases: []string{"language"}, Prompt: "language", Type: FieldString, Required: true},
				{Name: "problem", Aliases: []string{"problem_id", "problemid"}, Prompt: "problem id", Type: FieldString, Required: true},
			},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Name] = cmd
	}
	return result
}

type runPayload struct {
	Code     string `json:"code"`
	Input    string `json:"input"`
	Language string `json:"language"`
}

type submitPayload struct {
	Code      string `json:"code"`
	Language  string `json:"language"`
	ProblemID string `json:"problemId"`
}

// BuildRequest creates the HTTP request for cmd.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	for _, field := range cmd.Fields {
		if field.Required && strings.TrimSpace(params.Get(field.Name)) == "" {
			return RequestSpec{}, fmt.Errorf("%s is required", field.Name)
		}
	}

	code, err := ReadFile(params.Get("file"))
	if err != nil {
		return RequestSpec{}, err
	}

	var payload interface{}
	switch cmd.Name {
	case "run":
		input := params.Get("input")
		if path := params.Get("input_file"); path != "" {
			input, err = ReadFile(path)
			if err != nil {
				return RequestSpec{}, err
			}
		}
		payload = runPayload{Code: code, Input: input, Language: params.Get("lang")}
	case "submit":
		payload = submitPayload{Code: code, Language: params.Get("lang"), ProblemID: params.Get("problem")}
	default:
		return RequestSpec{}, fmt.Errorf("unknown command: %s", cmd.Name)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
	}
	return RequestSpec{Method: cmd.Method, Path: cmd.Path, Body: body}, nil
}
