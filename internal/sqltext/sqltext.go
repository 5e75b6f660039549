// Package sqltext scans SQL text for parameter markers without parsing it.
// Quoted strings, quoted identifiers and comments are skipped.
package sqltext

import (
	"strconv"
	"strings"
)

// walk calls fn with the byte offset of every '?' marker and ';' separator
// outside quotes and comments.
func walk(q string, fn func(i int, c byte)) {
	for i := 0; i < len(q); i++ {
		switch c := q[i]; c {
		case '\'', '"', '`':
			j := i + 1
			for j < len(q) {
				if q[j] == c {
					// doubled quote is an escaped quote
					if j+1 < len(q) && q[j+1] == c {
						j += 2
						continue
					}
					break
				}
				j++
			}
			i = j
		case '-':
			if i+1 < len(q) && q[i+1] == '-' {
				for i < len(q) && q[i] != '\n' {
					i++
				}
			}
		case '/':
			if i+1 < len(q) && q[i+1] == '*' {
				end := strings.Index(q[i+2:], "*/")
				if end < 0 {
					return
				}
				i += end + 3
			}
		case '?', ';':
			fn(i, c)
		}
	}
}

// CountMarkers returns the number of '?' parameter markers in q.
func CountMarkers(q string) int {
	n := 0
	walk(q, func(_ int, c byte) {
		if c == '?' {
			n++
		}
	})
	return n
}

// Numbered rewrites '?' markers to $1, $2, ... as PostgreSQL expects.
func Numbered(q string) string {
	var b strings.Builder
	last, n := 0, 0
	walk(q, func(i int, c byte) {
		if c != '?' {
			return
		}
		n++
		b.WriteString(q[last:i])
		b.WriteString("$")
		b.WriteString(strconv.Itoa(n))
		last = i + 1
	})
	if n == 0 {
		return q
	}
	b.WriteString(q[last:])
	return b.String()
}

// MultipleStatements reports whether q holds SQL after its first ';'
// separator. Blanks, comments and further separators do not count.
func MultipleStatements(q string) bool {
	tail := -1
	walk(q, func(i int, c byte) {
		if c == ';' && tail < 0 {
			tail = i + 1
		}
	})
	if tail < 0 {
		return false
	}
	return skipNoise(q[tail:]) != ""
}

// skipNoise drops leading blanks, separators and comments.
func skipNoise(q string) string {
	for {
		q = strings.TrimLeft(q, " \t\r\n;")
		switch {
		case strings.HasPrefix(q, "--"):
			nl := strings.IndexByte(q, '\n')
			if nl < 0 {
				return ""
			}
			q = q[nl+1:]
		case strings.HasPrefix(q, "/*"):
			end := strings.Index(q, "*/")
			if end < 0 {
				return ""
			}
			q = q[end+2:]
		default:
			return q
		}
	}
}

var rowKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"VALUES":   true,
	"SHOW":     true,
	"EXPLAIN":  true,
	"DESCRIBE": true,
	"DESC":     true,
	"PRAGMA":   true,
	"TABLE":    true,
	"CALL":     true,
}

// ReturnsRows reports whether q starts with a keyword that produces a result
// set. Statements with a RETURNING clause also count.
func ReturnsRows(q string) bool {
	kw := strings.ToUpper(firstWord(q))
	if rowKeywords[kw] {
		return true
	}
	switch kw {
	case "INSERT", "UPDATE", "DELETE":
		return strings.Contains(strings.ToUpper(q), "RETURNING")
	}
	return false
}

func firstWord(q string) string {
	q = strings.TrimLeft(q, " \t\r\n(")
	for strings.HasPrefix(q, "--") || strings.HasPrefix(q, "/*") {
		if strings.HasPrefix(q, "--") {
			nl := strings.IndexByte(q, '\n')
			if nl < 0 {
				return ""
			}
			q = q[nl+1:]
		} else {
			end := strings.Index(q, "*/")
			if end < 0 {
				return ""
			}
			q = q[end+2:]
		}
		q = strings.TrimLeft(q, " \t\r\n(")
	}
	end := strings.IndexFunc(q, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end < 0 {
		return q
	}
	return q[:end]
}
