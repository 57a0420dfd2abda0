package grader

import (
	"context"
	"strings"
	"time"

	"github.com/mcoot/codeduel-go/internal/dependencies/random"
	"github.com/mcoot/codeduel-go/internal/model"
)

// Static scores two-sum style solutions by looking for the shape of a
// working answer. It never executes code.
type Static struct {
	random random.Random
}

// NewStatic creates a static grader; rnd only drives the reported runtime
func NewStatic(rnd random.Random) *Static {
	return &Static{random: rnd}
}

// Grade scores the code with a fixed ladder of checks
func (g *Static) Grade(ctx context.Context, code string, problem model.Problem) (model.GradeReport, error) {
	if err := ctx.Err(); err != nil {
		return model.GradeReport{}, err
	}

	total := len(problem.Tests)
	passed, reason := score(code)
	if passed > total {
		passed = total
	}

	report := model.GradeReport{
		Passed:  passed,
		Total:   total,
		Runtime: time.Duration(50+g.random.Intn(151)) * time.Millisecond,
	}
	if reason != "" {
		report.Errors = []string{reason}
	}
	return report, nil
}

func containsAny(code string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(code, n) {
			return true
		}
	}
	return false
}

// score returns the number of tests the heuristic credits and why it stopped
func score(code string) (int, string) {
	if !strings.Contains(code, "def ") {
		return 0, "Solution must be defined as a function"
	}

	iterates := containsAny(code, "for", "while", "dict", "{}")
	switch {
	case !strings.Contains(code, "return"):
		return 0, "Function must return a value"
	case !strings.Contains(strings.ToLower(code), "target"):
		return 1, "Function doesn't seem to use the target parameter"
	case !containsAny(code, "nums[", "nums.", "enumerate(nums"):
		return 1, "Function doesn't properly access the nums array"
	case !containsAny(code, "[i,", "[0,", "[1,", "i,", "j,", "return ["):
		return 2, "Function doesn't return proper indices format"
	case !iterates:
		return 3, "Solution needs iteration or hash table for efficiency"
	case strings.Contains(code, "enumerate"):
		return 5, ""
	default:
		return 4, "Test case 5 failed - check edge cases"
	}
}
