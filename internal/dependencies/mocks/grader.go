package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/codeduel-go/internal/model"
)

// MockGrader returns scripted reports keyed by submitted code
type MockGrader struct {
	mu      sync.Mutex
	reports map[string]model.GradeReport
	errs    map[string]error
	gates   map[string]chan struct{}
	calls   int
	entered chan string
}

// NewMockGrader creates a grader that fails every test unless scripted
func NewMockGrader() *MockGrader {
	return &MockGrader{
		reports: make(map[string]model.GradeReport),
		errs:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
		entered: make(chan string, 64),
	}
}

// SetPassed scripts the number of tests passed for code
func (g *MockGrader) SetPassed(code string, passed int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reports[code] = model.GradeReport{Passed: passed}
}

// SetError makes grading code fail with err
func (g *MockGrader) SetError(code string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[code] = err
}

// Hold blocks grading of code until the returned func is called
func (g *MockGrader) Hold(code string) (release func()) {
	gate := make(chan struct{})
	g.mu.Lock()
	g.gates[code] = gate
	g.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Entered receives the code of every submission as grading starts
func (g *MockGrader) Entered() <-chan string {
	return g.entered
}

// Calls returns how many times Grade has run
func (g *MockGrader) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Grade implements the grading collaborator
func (g *MockGrader) Grade(ctx context.Context, code string, problem model.Problem) (model.GradeReport, error) {
	g.mu.Lock()
	g.calls++
	report := g.reports[code]
	err := g.errs[code]
	gate := g.gates[code]
	g.mu.Unlock()

	select {
	case g.entered <- code:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.GradeReport{}, ctx.Err()
		}
	}
	if err != nil {
		return model.GradeReport{}, err
	}
	report.Total = len(problem.Tests)
	return report, nil
}
