package model

// TestCase is one hidden {input, expected output} pair, read-only for the judge.
type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Problem is the subset of the problem document the judge reads.
type Problem struct {
	ID              string     `json:"_id,omitempty"`
	Title           string     `json:"title,omitempty"`
	HiddenTestCases []TestCase `json:"hiddenTestCases"`
}
