package manager

import (
	"fmt"
	"sort"
	"strings"

	odbc "github.com/lebje/go-odbc"
)

// Attributes are connection attributes keyed by lower-case keyword.
type Attributes map[string]string

// Get returns the first non-empty value among the given keywords. Keywords
// are matched case-insensitively; list aliases such as "UID", "User".
func (a Attributes) Get(keys ...string) string {
	for _, k := range keys {
		if v := a[strings.ToLower(k)]; v != "" {
			return v
		}
	}
	return ""
}

// Set stores v under key.
func (a Attributes) Set(key, v string) { a[strings.ToLower(key)] = v }

// merge copies every attribute of o into a, overwriting existing keys.
func (a Attributes) merge(o Attributes) {
	for k, v := range o {
		a[k] = v
	}
}

func (a Attributes) clone() Attributes {
	c := make(Attributes, len(a))
	c.merge(a)
	return c
}

// list returns the attributes sorted by keyword.
func (a Attributes) list() []odbc.Attribute {
	out := make([]odbc.Attribute, 0, len(a))
	for k, v := range a {
		out = append(out, odbc.Attribute{Keyword: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })
	return out
}

// String formats the attributes as a connection string. Values holding a
// separator are braced; PWD is masked.
func (a Attributes) String() string {
	var b strings.Builder
	for _, at := range a.list() {
		v := at.Value
		if at.Keyword == "pwd" || at.Keyword == "password" {
			v = "***"
		} else if strings.ContainsAny(v, ";{}=") || strings.TrimSpace(v) != v {
			v = "{" + strings.ReplaceAll(v, "}", "}}") + "}"
		}
		fmt.Fprintf(&b, "%s=%s;", strings.ToUpper(at.Keyword), v)
	}
	return b.String()
}

// ParseConnString parses an ODBC connection string:
//
//	DRIVER={PostgreSQL Unicode};SERVER=localhost;PORT=5432;DATABASE=app;
//
// Keywords are case-insensitive and surrounding blanks are dropped. Values
// wrapped in braces may contain ';' and escape '}' as "}}". Empty segments
// are ignored; a later keyword overrides an earlier one.
func ParseConnString(s string) (Attributes, error) {
	attrs := make(Attributes)
	i := 0
	for {
		for i < len(s) && (s[i] == ';' || s[i] == ' ') {
			i++
		}
		if i >= len(s) {
			break
		}
		seg := s[i:]
		eq := strings.IndexByte(seg, '=')
		if semi := strings.IndexByte(seg, ';'); eq < 0 || (semi >= 0 && semi < eq) {
			if semi < 0 {
				semi = len(seg)
			}
			return nil, fmt.Errorf("connection string: keyword %q has no value", strings.TrimSpace(seg[:semi]))
		}
		key := strings.TrimSpace(seg[:eq])
		if key == "" {
			return nil, fmt.Errorf("connection string: empty keyword at offset %d", i)
		}
		i += eq + 1

		// skip blanks before the value
		for i < len(s) && s[i] == ' ' {
			i++
		}

		var val string
		if i < len(s) && s[i] == '{' {
			var b strings.Builder
			i++
			closed := false
			for i < len(s) {
				if s[i] == '}' {
					if i+1 < len(s) && s[i+1] == '}' {
						b.WriteByte('}')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteByte(s[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("connection string: unterminated brace in value of %q", key)
			}
			val = b.String()
			for i < len(s) && s[i] == ' ' {
				i++
			}
			if i < len(s) && s[i] != ';' {
				return nil, fmt.Errorf("connection string: unexpected %q after value of %q", s[i], key)
			}
		} else {
			end := strings.IndexByte(s[i:], ';')
			if end < 0 {
				end = len(s) - i
			}
			val = strings.TrimSpace(s[i : i+end])
			i += end
		}
		if i < len(s) && s[i] == ';' {
			i++
		}
		attrs.Set(key, val)
	}
	return attrs, nil
}
