// Package problem holds the built-in problems a lobby can duel over.
package problem

import (
	"fmt"
	"slices"
	"time"

	"github.com/mcoot/codeduel-go/internal/model"
)

// DefaultTimeLimit is the match clock shown to clients
const DefaultTimeLimit = 300 * time.Second

// TwoSumID is the id of the default problem
const TwoSumID model.ProblemID = "two-sum"

const twoSumTemplate = `# Read input
import sys
lines = sys.stdin.read().strip().split('\n')
nums = eval(lines[0])
target = int(lines[1])

def two_sum(nums, target):
    # Write your solution here
    pass

result = two_sum(nums, target)
print(result)`

var twoSum = model.Problem{
	ID:    TwoSumID,
	Title: "Two Sum",
	Description: "Given an array of integers nums and an integer target, return indices of the two " +
		"numbers such that they add up to target. Input: the first line holds the array " +
		"(e.g. [2,7,11,15]), the second line holds the target.",
	Template:  twoSumTemplate,
	TimeLimit: DefaultTimeLimit,
	Tests: []model.TestCase{
		{Input: "[2,7,11,15]\n9", ExpectedOutput: "[0, 1]"},
		{Input: "[3,2,4]\n6", ExpectedOutput: "[1, 2]"},
		{Input: "[3,3]\n6", ExpectedOutput: "[0, 1]"},
		{Input: "[1,2,3,4,5]\n9", ExpectedOutput: "[3, 4]"},
		{Input: "[2,5,5,11]\n10", ExpectedOutput: "[1, 2]"},
	},
}

// Catalog looks up problems by id
type Catalog struct {
	problems map[model.ProblemID]model.Problem
	fallback model.ProblemID
}

// NewCatalog returns a catalog holding the built-in problems.
// Default returns two-sum.
func NewCatalog() *Catalog {
	return &Catalog{
		problems: map[model.ProblemID]model.Problem{TwoSumID: twoSum},
		fallback: TwoSumID,
	}
}

// Get returns a copy of the problem with the given id
func (c *Catalog) Get(id model.ProblemID) (model.Problem, error) {
	p, ok := c.problems[id]
	if !ok {
		return model.Problem{}, fmt.Errorf("problem %q not in catalog", id)
	}
	p.Tests = slices.Clone(p.Tests)
	return p, nil
}

// Default returns the problem assigned to new lobbies
func (c *Catalog) Default() model.Problem {
	p, _ := c.Get(c.fallback)
	return p
}

// View builds the client-facing description of a problem
func View(p model.Problem) model.ProblemView {
	return model.ProblemView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Template:    p.Template,
		TimeLimit:   int(p.TimeLimit / time.Second),
		TestCount:   len(p.Tests),
	}
}
