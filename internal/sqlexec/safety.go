// Package sqlexec executes generated SQL against a session's in-memory
// telemetry tables, enforcing the safety filter before every execution.
package sqlexec

import "strings"

// disallowedKeywords are statement keywords that mutate data or reach
// engine internals. A query containing any of them never executes.
var disallowedKeywords = map[string]struct{}{
	"DROP":   {},
	"DELETE": {},
	"INSERT": {},
	"UPDATE": {},
	"PRAGMA": {},
}

// IsSafe reports whether the query is free of disallowed keyword tokens,
// case-insensitive. Quoted strings and identifiers are not keywords.
func IsSafe(query string) bool {
	for _, tok := range tokenize(query) {
		if _, bad := disallowedKeywords[strings.ToUpper(tok)]; bad {
			return false
		}
	}
	return true
}

// tokenize splits a statement into bare word tokens, skipping quoted
// runs ('...', "...", `...`) and bracketed identifiers ([...]).
func tokenize(query string) []string {
	var tokens []string
	i := 0
	for i < len(query) {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote := c
			i++
			for i < len(query) {
				if query[i] == quote {
					// Doubled quote is an escaped quote, not a terminator.
					if i+1 < len(query) && query[i+1] == quote {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
		case c == '[':
			for i < len(query) && query[i] != ']' {
				i++
			}
			if i < len(query) {
				i++
			}
		case isWordByte(c):
			start := i
			for i < len(query) && isWordByte(query[i]) {
				i++
			}
			tokens = append(tokens, query[start:i])
		default:
			i++
		}
	}
	return tokens
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
