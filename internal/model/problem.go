package model

import "time"

// ProblemID is the opaque identifier of a coding problem
type ProblemID string

// TestCase is one stdin/expected-stdout pair used for grading
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// Problem is what a lobby duels over
type Problem struct {
	ID          ProblemID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Template    string        `json:"template"`
	TimeLimit   time.Duration `json:"time_limit"`
	Tests       []TestCase    `json:"tests"`
}

// GradeReport is the grading collaborator's verdict on one submission
type GradeReport struct {
	Passed  int           `json:"passed"`
	Total   int           `json:"total"`
	Errors  []string      `json:"errors"`
	Runtime time.Duration `json:"runtime"`
}

// AllPassed reports whether every test passed
func (r GradeReport) AllPassed() bool {
	return r.Total > 0 && r.Passed == r.Total
}

// SubmissionResult is returned to the submitter after arbitration
type SubmissionResult struct {
	GradeReport
	Correct bool `json:"correct"`
	Won     bool `json:"won"`
	Late    bool `json:"late"`
}
