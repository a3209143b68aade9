package dto

import (
	"encoding/json"
	"errors"

	"github.com/noah-isme/gema-checker-api/internal/checker"
)

// ErrNullSnippet is returned when a check list contains a JSON null entry.
var ErrNullSnippet = errors.New("check snippets must be strings")

// RunTestsRequest represents a learner submission for static checking.
// Field order defines which missing field is reported first.
type RunTestsRequest struct {
	UserCode    string     `json:"user_code" validate:"notblank"`
	Tests       string     `json:"tests" validate:"notblank"`
	ExerciseID  string     `json:"exercise_id" validate:"notblank"`
	LessonID    *string    `json:"lesson_id,omitempty"`
	LessonTitle *string    `json:"lesson_title,omitempty"`
	Checks      *CheckSpec `json:"checks,omitempty"`
}

// CheckSpec lists snippets the submission must or must not contain.
type CheckSpec struct {
	MustInclude    Snippets `json:"must_include"`
	MustNotInclude Snippets `json:"must_not_include"`
}

// Snippets is an ordered list of literal snippets. A null list decodes as
// empty, a null entry is rejected.
type Snippets []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snippets) UnmarshalJSON(data []byte) error {
	var entries []*string
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	snippets := make(Snippets, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			return ErrNullSnippet
		}
		snippets = append(snippets, *entry)
	}
	*s = snippets
	return nil
}

// TestResult describes a single check outcome.
type TestResult struct {
	Name    string `json:"name"`
	Pass    bool   `json:"pass"`
	Message string `json:"message,omitempty"`
}

// RunTestsResponse is the report returned for a submission.
type RunTestsResponse struct {
	Success   bool         `json:"success"`
	Results   []TestResult `json:"results"`
	RawOutput *string      `json:"raw_output,omitempty"`
	Notes     *string      `json:"notes,omitempty"`
}

// CheckerSpec converts the optional wire checks into evaluator rules.
func (r RunTestsRequest) CheckerSpec() checker.Spec {
	if r.Checks == nil {
		return checker.Spec{}
	}
	return checker.Spec{
		MustInclude:    r.Checks.MustInclude,
		MustNotInclude: r.Checks.MustNotInclude,
	}
}

// NewRunTestsResponse builds a response DTO from an evaluator report.
func NewRunTestsResponse(report checker.Report) RunTestsResponse {
	results := make([]TestResult, 0, len(report.Results))
	for _, result := range report.Results {
		results = append(results, TestResult{
			Name:    result.Name,
			Pass:    result.Pass,
			Message: result.Message,
		})
	}

	return RunTestsResponse{
		Success: report.Success,
		Results: results,
	}
}
