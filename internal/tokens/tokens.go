// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tokens provides approximate token and character accounting.
// The approximation (ceil(bytes/4) plus the word count) tracks
// BPE tokenizers closely enough for ratios without a model-specific
// vocabulary.
package tokens

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Words counts whitespace-separated words.
func Words(s string) int {
	inWord := false
	count := 0
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == ' ' || b == '\n' || b == '\t' || b == '\r' {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

// Approx returns the approximate token count of s. Blank text has zero tokens.
func Approx(s string) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return int(math.Ceil(float64(len(s))/4.0)) + Words(s)
}

// Chars returns the number of characters (runes) in s.
func Chars(s string) int {
	return utf8.RuneCountInString(s)
}

// Ratio returns after/before, or 1 when before is zero.
func Ratio(before, after int) float64 {
	if before == 0 {
		return 1
	}
	return float64(after) / float64(before)
}
