// Package guillemet implements Quillmark's C1 preprocessor, rewriting
// <<x>> to «x» outside code contexts. Grounded on
// original_source/crates/core/src/guillemet.rs.
package guillemet

import "strings"

// MaxGuillemetLength bounds the content between << and >> that will be
// converted; oversize spans are left verbatim.
const MaxGuillemetLength = 64 * 1024

// Range is a byte range into the rewritten output string identifying the
// converted content of one guillemet span (the text between « and », not
// including the guillemet characters themselves).
type Range struct {
	Start, End int
}

// countLeadingSpaces returns the number of leading ASCII spaces in s.
func countLeadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

// findMatchingGuillemetEnd finds the nearest ">>" at or after from on the
// same line as the "<<" that starts at from-2. Returns -1 if none found
// before a newline or EOF.
func findMatchingGuillemetEnd(s string, from int) int {
	for i := from; i+1 < len(s); i++ {
		if s[i] == '\n' {
			return -1
		}
		if s[i] == '>' && s[i+1] == '>' {
			return i
		}
	}
	return -1
}

// PreprocessPlain implements plain mode: used on YAML string scalars. For
// each "<<" it finds the nearest ">>" on the same line; if the interior is
// <= MaxGuillemetLength it is trimmed and wrapped in guillemets. Already
// idempotent: a string with no "<<" is returned unchanged (including
// strings that already contain « » from a prior pass).
func PreprocessPlain(s string) string {
	if !strings.Contains(s, "<<") {
		return s
	}
	var out strings.Builder
	i := 0
	for i < len(s) {
		if i+1 < len(s) && s[i] == '<' && s[i+1] == '<' {
			end := findMatchingGuillemetEnd(s, i+2)
			if end >= 0 && end-(i+2) <= MaxGuillemetLength {
				inner := strings.TrimSpace(s[i+2 : end])
				out.WriteString("«")
				out.WriteString(inner)
				out.WriteString("»")
				i = end + 2
				continue
			}
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}

type fenceState struct {
	ch  byte
	len int
}

// PreprocessMarkdown implements markdown-aware mode: the same rewrite rule
// as plain mode, skipped inside fenced code blocks, indented code blocks,
// and inline code spans. Returns the rewritten string plus the byte ranges
// (in the *output* string) of each span's converted interior.
func PreprocessMarkdown(s string) (string, []Range) {
	var out strings.Builder
	var ranges []Range

	var fence *fenceState
	var inlineBackticks int
	atLineStart := true

	n := len(s)
	i := 0
	for i < n {
		c := s[i]

		if atLineStart && fence == nil && inlineBackticks == 0 {
			spaces := countLeadingSpaces(s[i:])
			if spaces >= 4 {
				// Indented code block line: copy verbatim to end of line.
				lineEnd := strings.IndexByte(s[i:], '\n')
				if lineEnd < 0 {
					out.WriteString(s[i:])
					i = n
					continue
				}
				out.WriteString(s[i : i+lineEnd+1])
				i += lineEnd + 1
				atLineStart = true
				continue
			}
		}

		if atLineStart && inlineBackticks == 0 {
			if run, ok := fenceRun(s, i); ok {
				if fence == nil {
					fence = &fenceState{ch: s[i], len: run}
				} else if s[i] == fence.ch && run >= fence.len {
					fence = nil
				}
				out.WriteString(s[i : i+run])
				i += run
				atLineStart = false
				continue
			}
		}

		if fence != nil {
			out.WriteByte(c)
			if c == '\n' {
				atLineStart = true
			} else {
				atLineStart = false
			}
			i++
			continue
		}

		if c == '`' {
			run := 0
			for i+run < n && s[i+run] == '`' {
				run++
			}
			out.WriteString(s[i : i+run])
			i += run
			if inlineBackticks == 0 {
				inlineBackticks = run
			} else if run == inlineBackticks {
				inlineBackticks = 0
			}
			atLineStart = false
			continue
		}

		if inlineBackticks == 0 && c == '<' && i+1 < n && s[i+1] == '<' {
			end := findMatchingGuillemetEnd(s, i+2)
			if end >= 0 && end-(i+2) <= MaxGuillemetLength {
				inner := strings.TrimSpace(s[i+2 : end])
				out.WriteString("«")
				start := out.Len()
				out.WriteString(inner)
				ranges = append(ranges, Range{Start: start, End: out.Len()})
				out.WriteString("»")
				i = end + 2
				atLineStart = false
				continue
			}
		}

		out.WriteByte(c)
		if c == '\n' {
			atLineStart = true
		} else {
			atLineStart = false
		}
		i++
	}

	return out.String(), ranges
}

// fenceRun reports whether s[i:] opens with a run of >= 3 identical
// backtick or tilde characters, returning the run length.
func fenceRun(s string, i int) (int, bool) {
	if i >= len(s) {
		return 0, false
	}
	c := s[i]
	if c != '`' && c != '~' {
		return 0, false
	}
	run := 0
	for i+run < len(s) && s[i+run] == c {
		run++
	}
	if run < 3 {
		return 0, false
	}
	return run, true
}

// InRange reports whether byte offset pos (in the rewritten output) falls
// within any converted guillemet span.
func InRange(ranges []Range, pos int) bool {
	for _, r := range ranges {
		if pos >= r.Start && pos < r.End {
			return true
		}
	}
	return false
}
