// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package condense

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// StripPass is the pipeline run after the lexical filter.
const StripPass = "strip-hedges"

// hedgeWords are removed by StyleFilter wherever they stand alone.
var hedgeWords = []string{
	"very", "really", "just", "basically", "actually", "simply",
	"quite", "rather", "somewhat", "essentially", "literally", "totally",
}

var (
	hedgePattern     = regexp.MustCompile(`(?i)\b(?:` + strings.Join(hedgeWords, "|") + `)\b,?`)
	ratherThan       = regexp.MustCompile(`(?i)^\s+than\b`)
	spaceRun         = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforePunct = regexp.MustCompile(`\s+([,.;:!?])`)
	commaBeforeStop  = regexp.MustCompile(`,([.;:!?])`)
	codeSpan         = regexp.MustCompile("`[^`]*`")
	codeMark         = regexp.MustCompile("\x00[0-9]+\x00")
)

// StyleFilter removes hedge and intensifier words line by line, repairing
// the spacing, punctuation and capitalization the removals disturb. Line
// breaks and leading indentation are preserved. Hyphenated compounds such
// as "just-in-time" and the phrase "rather than" are left alone, as are
// inline code spans and fenced code blocks. A hedge that stood as a whole
// sentence is removed with its punctuation.
func StyleFilter(s string) string {
	lines := strings.Split(s, "\n")
	inFence := false
	for i, line := range lines {
		body := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(body)]
		if isFence(body) {
			inFence = !inFence
			continue
		}
		if inFence || body == "" {
			continue
		}
		body, spans := maskCode(body)
		body = removeHedges(body)
		body = spaceRun.ReplaceAllString(body, " ")
		body = spaceBeforePunct.ReplaceAllString(body, "$1")
		body = commaBeforeStop.ReplaceAllString(body, "$1")
		body = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(body), ","))
		if body == "" {
			lines[i] = ""
			continue
		}
		lines[i] = indent + unmaskCode(body, spans)
	}
	return strings.Join(lines, "\n")
}

func isFence(body string) bool {
	return strings.HasPrefix(body, "```") || strings.HasPrefix(body, "~~~")
}

// maskCode replaces each inline code span with a placeholder that neither
// the hedge pattern nor the punctuation cleanup can match.
func maskCode(line string) (string, []string) {
	var spans []string
	masked := codeSpan.ReplaceAllStringFunc(line, func(span string) string {
		spans = append(spans, span)
		return "\x00" + strconv.Itoa(len(spans)-1) + "\x00"
	})
	return masked, spans
}

func unmaskCode(line string, spans []string) string {
	if len(spans) == 0 {
		return line
	}
	return codeMark.ReplaceAllStringFunc(line, func(m string) string {
		n, err := strconv.Atoi(strings.Trim(m, "\x00"))
		if err != nil || n >= len(spans) {
			return m
		}
		return spans[n]
	})
}

func removeHedges(line string) string {
	matches := hedgePattern.FindAllStringIndex(line, -1)
	if len(matches) == 0 {
		return line
	}

	var b strings.Builder
	last := 0
	capNext := false
	for _, m := range matches {
		start, end := m[0], m[1]
		if keepHedge(line, start, end) {
			continue
		}
		seg := line[last:start]
		if capNext {
			seg, capNext = capitalizeFirst(seg)
		}
		b.WriteString(seg)
		if r, _ := utf8.DecodeRuneInString(line[start:]); unicode.IsUpper(r) {
			capNext = true
		}
		if atSentenceStart(b.String()) {
			end += orphanStop(line[end:])
		}
		last = end
	}
	seg := line[last:]
	if capNext {
		seg, _ = capitalizeFirst(seg)
	}
	b.WriteString(seg)
	return b.String()
}

// atSentenceStart reports whether text written so far ends a sentence.
func atSentenceStart(prefix string) bool {
	prefix = strings.TrimRight(prefix, " \t")
	if prefix == "" {
		return true
	}
	switch prefix[len(prefix)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// orphanStop returns the length of the whitespace and terminal punctuation
// opening rest, or 0 when rest does not open with a terminator.
func orphanStop(rest string) int {
	n := len(rest) - len(strings.TrimLeft(rest, " \t"))
	stop := len(rest[n:]) - len(strings.TrimLeft(rest[n:], ".!?"))
	if stop == 0 {
		return 0
	}
	return n + stop
}

// keepHedge reports whether the match at line[start:end] is part of a
// hyphenated compound or the comparative "rather than".
func keepHedge(line string, start, end int) bool {
	if start > 0 && line[start-1] == '-' {
		return true
	}
	if end < len(line) && line[end] == '-' {
		return true
	}
	word := strings.TrimSuffix(line[start:end], ",")
	return strings.EqualFold(word, "rather") && ratherThan.MatchString(line[end:])
}

// capitalizeFirst upper-cases the first letter of s. pending is true when s
// has no letter, so the caller carries the capitalization forward.
func capitalizeFirst(s string) (out string, pending bool) {
	for i, r := range s {
		if unicode.IsLetter(r) {
			return s[:i] + string(unicode.ToUpper(r)) + s[i+utf8.RuneLen(r):], false
		}
	}
	return s, true
}
