package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Default(t *testing.T) {
	c := NewCatalog()

	p := c.Default()
	assert.Equal(t, TwoSumID, p.ID)
	assert.Len(t, p.Tests, 5)
	assert.Equal(t, DefaultTimeLimit, p.TimeLimit)
	assert.Contains(t, p.Template, "def two_sum(nums, target):")
}

func TestCatalog_GetReturnsCopy(t *testing.T) {
	c := NewCatalog()

	p, err := c.Get(TwoSumID)
	require.NoError(t, err)
	p.Tests[0].ExpectedOutput = "tampered"

	again, err := c.Get(TwoSumID)
	require.NoError(t, err)
	assert.Equal(t, "[0, 1]", again.Tests[0].ExpectedOutput)

	_, err = c.Get("fizzbuzz")
	assert.Error(t, err)
}

func TestView(t *testing.T) {
	v := View(NewCatalog().Default())
	assert.Equal(t, 300, v.TimeLimit)
	assert.Equal(t, 5, v.TestCount)
	assert.Equal(t, "Two Sum", v.Title)
}
