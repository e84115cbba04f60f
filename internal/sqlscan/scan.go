// Package sqlscan is a small quote- and parenthesis-aware scanner for SQL text.
//
// The scanner is a finite-state machine with two pieces of state: the quote
// currently open (none, ', " or `) and the parenthesis depth. A byte is at top
// level when no quote is open and the depth is zero. Splitting, tokenizing and
// comment stripping all run on the same machine, so commas, semicolons and
// spaces inside literals such as 'a,b' or enum('x y','z') never split anything.
package sqlscan

import (
	"errors"
	"strings"
)

var (
	ErrUnterminatedQuote = errors.New("unterminated quote")
	ErrUnbalancedParens  = errors.New("unbalanced parentheses")
)

// Machine tracks quote state and parenthesis depth over a left-to-right scan.
type Machine struct {
	quote     byte
	depth     int
	underflow bool
	// IgnoreParens disables depth tracking, so only quotes are honored.
	IgnoreParens bool
}

// Step consumes the byte at s[i] and returns the index of the next unconsumed
// byte and whether s[i] was seen at top level. Escapes inside quotes (a doubled
// quote, or a backslash outside backtick quotes) are consumed as a pair.
func (m *Machine) Step(s string, i int) (next int, top bool) {
	ch := s[i]
	if m.quote != 0 {
		switch {
		case ch == '\\' && m.quote != '`' && i+1 < len(s):
			return i + 2, false
		case ch == m.quote && i+1 < len(s) && s[i+1] == m.quote:
			return i + 2, false
		case ch == m.quote:
			m.quote = 0
		}
		return i + 1, false
	}

	switch ch {
	case '\'', '"', '`':
		m.quote = ch
		return i + 1, false
	case '(':
		if m.IgnoreParens {
			break
		}
		m.depth++
		return i + 1, false
	case ')':
		if m.IgnoreParens {
			break
		}
		m.depth--
		if m.depth < 0 {
			m.underflow = true
			m.depth = 0
		}
		return i + 1, m.depth == 0
	}
	return i + 1, m.depth == 0
}

// InQuote reports whether a quote is open.
func (m *Machine) InQuote() bool { return m.quote != 0 }

// Depth returns the current parenthesis depth.
func (m *Machine) Depth() int { return m.depth }

// Err reports the problem left by the scan so far, if any.
func (m *Machine) Err() error {
	switch {
	case m.quote != 0:
		return ErrUnterminatedQuote
	case m.depth != 0 || m.underflow:
		return ErrUnbalancedParens
	}
	return nil
}

// Check scans s completely and reports an unterminated quote or unbalanced
// parentheses.
func Check(s string) error {
	var m Machine
	for i := 0; i < len(s); {
		i, _ = m.Step(s, i)
	}
	return m.Err()
}

// Split cuts s at every top-level occurrence of sep. The pieces are returned
// even when the scan ends in an error state; the last piece then holds the
// malformed text.
func Split(s string, sep byte) ([]string, error) {
	var m Machine
	return split(&m, s, sep)
}

// SplitStatements cuts a batch of statements at unquoted semicolons. Parentheses
// are not tracked, so one unbalanced statement does not swallow the next.
func SplitStatements(s string) ([]string, error) {
	m := Machine{IgnoreParens: true}
	pieces, err := split(&m, s, ';')
	out := pieces[:0]
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out, err
}

func split(m *Machine, s string, sep byte) ([]string, error) {
	var out []string
	start := 0
	for i := 0; i < len(s); {
		ch := s[i]
		next, top := m.Step(s, i)
		if top && ch == sep {
			out = append(out, s[start:i])
			start = next
		}
		i = next
	}
	out = append(out, s[start:])
	return out, m.Err()
}

// MatchParen returns the index of the parenthesis closing the one at s[open],
// or -1 when it is never closed.
func MatchParen(s string, open int) int {
	if open < 0 || open >= len(s) || s[open] != '(' {
		return -1
	}
	var m Machine
	for i := open; i < len(s); {
		next, _ := m.Step(s, i)
		if s[i] == ')' && !m.InQuote() && m.Depth() == 0 && i > open {
			return i
		}
		i = next
	}
	return -1
}

// IndexTopLevel returns the index of the first top-level occurrence of ch.
func IndexTopLevel(s string, ch byte) int {
	var m Machine
	for i := 0; i < len(s); {
		if s[i] == ch && !m.InQuote() && m.Depth() == 0 {
			return i
		}
		i, _ = m.Step(s, i)
	}
	return -1
}

// Tokens splits a clause on top-level whitespace. Quoted text and parenthesized
// groups stay inside their token, so "DEFAULT 'a b'" yields two tokens.
func Tokens(s string) ([]string, error) {
	var m Machine
	var out []string
	start := -1
	for i := 0; i < len(s); {
		ch := s[i]
		wasTop := !m.InQuote() && m.Depth() == 0
		next, _ := m.Step(s, i)
		if wasTop && isSpace(ch) {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i = next
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out, m.Err()
}

// StripComments removes "-- ", "#" and "/* */" comments outside quotes.
func StripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	m := Machine{IgnoreParens: true}
	for i := 0; i < len(s); {
		if !m.InQuote() {
			switch {
			case strings.HasPrefix(s[i:], "--") && (i+2 == len(s) || isSpace(s[i+2])):
				i = skipLine(s, i)
				continue
			case s[i] == '#':
				i = skipLine(s, i)
				continue
			case strings.HasPrefix(s[i:], "/*"):
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += end + 4
				b.WriteByte(' ')
				continue
			}
		}
		next, _ := m.Step(s, i)
		b.WriteString(s[i:next])
		i = next
	}
	return b.String()
}

func skipLine(s string, i int) int {
	if nl := strings.IndexByte(s[i:], '\n'); nl >= 0 {
		return i + nl
	}
	return len(s)
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}
