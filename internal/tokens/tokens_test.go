// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"hello", 1},
		{"hello world", 2},
		{"  leading\tand\ntrailing  ", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Words(tt.in), "Words(%q)", tt.in)
	}
}

func TestApprox(t *testing.T) {
	assert.Equal(t, 0, Approx(""))
	assert.Equal(t, 0, Approx(" \n\t"))
	// 5 bytes -> ceil(5/4)=2, plus 1 word.
	assert.Equal(t, 3, Approx("hello"))
	// 11 bytes -> 3, plus 2 words.
	assert.Equal(t, 5, Approx("hello world"))
}

func TestChars(t *testing.T) {
	assert.Equal(t, 4, Chars("café"))
	assert.Equal(t, 0, Chars(""))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio(0, 0))
	assert.Equal(t, 1.0, Ratio(0, 5))
	assert.Equal(t, 0.5, Ratio(10, 5))
}
