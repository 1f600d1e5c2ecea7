package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerhoeffValid(t *testing.T) {
	cases := []struct {
		digits string
		valid  bool
	}{
		{"2363", true},
		{"2364", false},
		{"234567890124", true},
		{"234567890125", false},
		{"234567890123", false},
		{"0", true}, // single check digit over empty payload
		{"1", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.valid, VerhoeffValid(tc.digits), "digits %q", tc.digits)
	}
}

func TestVerhoeffRejectsNonDigits(t *testing.T) {
	assert.False(t, VerhoeffValid(""))
	assert.False(t, VerhoeffValid("23a4"))
	assert.False(t, VerhoeffValid("2345 6789 0124"))
}

func TestVerhoeffDetectsSingleDigitErrors(t *testing.T) {
	const base = "234567890124"
	for pos := 0; pos < len(base); pos++ {
		for d := byte('0'); d <= '9'; d++ {
			if base[pos] == d {
				continue
			}
			mutated := base[:pos] + string(d) + base[pos+1:]
			assert.False(t, VerhoeffValid(mutated), "mutation at %d to %c", pos, d)
		}
	}
}

func TestVerhoeffDetectsAdjacentTranspositions(t *testing.T) {
	const base = "234567890124"
	for pos := 0; pos+1 < len(base); pos++ {
		if base[pos] == base[pos+1] {
			continue
		}
		b := []byte(base)
		b[pos], b[pos+1] = b[pos+1], b[pos]
		assert.False(t, VerhoeffValid(string(b)), "transposition at %d", pos)
	}
}
