package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/codeduel-go/internal/config"
	"github.com/mcoot/codeduel-go/internal/model"
)

// Judge0 submission status ids
const (
	statusInQueue    = 1
	statusProcessing = 2
	statusAccepted   = 3
)

// ErrJudge0Unavailable wraps transport failures talking to Judge0
var ErrJudge0Unavailable = errors.New("judge0 unavailable")

// Judge0 grades by running each test case as a separate Judge0 submission
type Judge0 struct {
	cfg    config.GraderConfig
	client *http.Client
	logger *slog.Logger
}

// NewJudge0 creates a Judge0 client from config
func NewJudge0(cfg config.GraderConfig, logger *slog.Logger) *Judge0 {
	return &Judge0{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(slog.String("component", "judge0")),
	}
}

type submissionRequest struct {
	LanguageID     int    `json:"language_id"`
	SourceCode     string `json:"source_code"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type submissionToken struct {
	Token string `json:"token"`
}

type submissionResult struct {
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compile_output"`
	Time          string `json:"time"`
}

// Grade submits every test case and polls each until it settles. Per-test
// failures become report errors; only transport failures are returned.
func (j *Judge0) Grade(ctx context.Context, code string, problem model.Problem) (model.GradeReport, error) {
	report := model.GradeReport{Total: len(problem.Tests)}
	var runtime time.Duration

	for i, tc := range problem.Tests {
		n := i + 1
		expected := strings.TrimSpace(tc.ExpectedOutput)

		token, status, err := j.submit(ctx, code, tc.Input, expected)
		if err != nil {
			return model.GradeReport{}, err
		}
		if token == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("Test %d: submission rejected with status %d", n, status))
			continue
		}

		result, err := j.await(ctx, token)
		if err != nil {
			return model.GradeReport{}, err
		}
		if result == nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Test %d: Timeout waiting for result", n))
			continue
		}

		if result.Status.ID == statusAccepted {
			report.Passed++
			if secs, err := strconv.ParseFloat(result.Time, 64); err == nil {
				runtime += time.Duration(secs * float64(time.Second))
			}
			continue
		}
		report.Errors = append(report.Errors, describeFailure(n, expected, result))
	}

	if report.Total > 0 {
		report.Runtime = runtime / time.Duration(report.Total)
	}
	j.logger.Debug("graded submission",
		slog.String("problem_id", string(problem.ID)),
		slog.Int("passed", report.Passed),
		slog.Int("total", report.Total))
	return report, nil
}

func describeFailure(n int, expected string, r *submissionResult) string {
	desc := r.Status.Description
	if desc == "" {
		desc = "Unknown error"
	}
	msg := fmt.Sprintf("Test %d: %s", n, desc)
	actual := strings.TrimSpace(r.Stdout)
	switch {
	case actual != "" && actual != expected:
		msg += fmt.Sprintf(" - Expected: %s, Got: %s", expected, actual)
	case strings.TrimSpace(r.Stderr) != "":
		msg += " - " + strings.TrimSpace(r.Stderr)
	case strings.TrimSpace(r.CompileOutput) != "":
		msg += " - " + strings.TrimSpace(r.CompileOutput)
	}
	return msg
}

// submit returns an empty token with the HTTP status when Judge0 refuses the submission
func (j *Judge0) submit(ctx context.Context, code, stdin, expected string) (string, int, error) {
	body, err := json.Marshal(submissionRequest{
		LanguageID:     j.cfg.LanguageID,
		SourceCode:     code,
		Stdin:          stdin,
		ExpectedOutput: expected,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.url("/submissions"), bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	j.authorize(req)

	status, raw, err := j.do(req)
	if err != nil {
		return "", 0, err
	}
	if status != http.StatusCreated {
		j.logger.Warn("judge0 rejected submission", slog.Int("status", status))
		return "", status, nil
	}

	var tok submissionToken
	if err := json.Unmarshal(raw, &tok); err != nil || tok.Token == "" {
		return "", status, fmt.Errorf("%w: bad submission response", ErrJudge0Unavailable)
	}
	return tok.Token, status, nil
}

// await polls a submission until it leaves the queue. A nil result means
// the poll budget ran out.
func (j *Judge0) await(ctx context.Context, token string) (*submissionResult, error) {
	timer := time.NewTimer(j.cfg.PollInterval)
	defer timer.Stop()

	for poll := 0; poll < j.cfg.MaxPolls; poll++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		timer.Reset(j.cfg.PollInterval)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url("/submissions/"+token), nil)
		if err != nil {
			return nil, fmt.Errorf("build poll request: %w", err)
		}
		j.authorize(req)

		status, raw, err := j.do(req)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			continue
		}

		var result submissionResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("%w: bad poll response", ErrJudge0Unavailable)
		}
		if result.Status.ID == statusInQueue || result.Status.ID == statusProcessing {
			continue
		}
		return &result, nil
	}
	return nil, nil
}

func (j *Judge0) do(req *http.Request) (int, []byte, error) {
	resp, err := j.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrJudge0Unavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read body: %w", ErrJudge0Unavailable, err)
	}
	return resp.StatusCode, raw, nil
}

func (j *Judge0) authorize(req *http.Request) {
	req.Header.Set("X-RapidAPI-Key", j.cfg.APIKey)
	req.Header.Set("X-RapidAPI-Host", j.cfg.APIHost)
}

func (j *Judge0) url(path string) string {
	return strings.TrimSuffix(j.cfg.BaseURL, "/") + path
}
