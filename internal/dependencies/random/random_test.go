package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntnStaysInRange(t *testing.T) {
	r := New()
	for i := 0; i < 200; i++ {
		v := r.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
	assert.Equal(t, 0, r.Intn(0))
}

func TestDigits(t *testing.T) {
	d := Digits(New(), 6)

	assert.Len(t, d, 6)
	for _, c := range d {
		assert.True(t, strings.ContainsRune(DigitAlphabet, c))
	}
}

func TestStringEmptyInputs(t *testing.T) {
	r := New()
	assert.Equal(t, "", r.String(0, "abc"))
	assert.Equal(t, "", r.String(4, ""))
}
