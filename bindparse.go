package oracle

import "strings"

// parseBindTokens extracts named and positional bind placeholders from
// sql in source order, implementing the conservative single-pass scanner
// decided in DESIGN.md's open-question resolution: quoted string
// literals and quoted identifiers are skipped so a colon or question
// mark inside them is never mistaken for a placeholder, and a bind name
// stops at the first character that cannot continue an identifier.
//
// Positional placeholders ("?") are returned with an empty Name and a
// 1-based Position matching their ordinal appearance; named placeholders
// (":name") carry Name and leave Position at the same ordinal so either
// addressing scheme can be used to supply values.
func parseBindTokens(sql string) []BindInfo {
	var binds []BindInfo
	ordinal := 0
	i := 0
	n := len(sql)
	for i < n {
		c := sql[i]
		switch {
		case c == '\'':
			i = skipQuoted(sql, i, '\'')
		case c == '"':
			i = skipQuoted(sql, i, '"')
		case c == '-' && i+1 < n && sql[i+1] == '-':
			i = skipLineComment(sql, i)
		case c == '/' && i+1 < n && sql[i+1] == '*':
			i = skipBlockComment(sql, i)
		case c == '?':
			ordinal++
			binds = append(binds, BindInfo{Position: ordinal})
			i++
		case c == ':' && i+1 < n && isBindNameStart(sql[i+1]):
			j := i + 1
			for j < n && isBindNameRune(sql[j]) {
				j++
			}
			ordinal++
			binds = append(binds, BindInfo{Name: sql[i+1 : j], Position: ordinal})
			i = j
		default:
			i++
		}
	}
	return binds
}

func isBindNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isBindNameRune(c byte) bool {
	return isBindNameStart(c) || (c >= '0' && c <= '9') || c == '$' || c == '#'
}

func skipQuoted(s string, i int, quote byte) int {
	i++ // skip opening quote
	for i < len(s) {
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				i += 2 // escaped quote-quote
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func skipLineComment(s string, i int) int {
	end := strings.IndexByte(s[i:], '\n')
	if end < 0 {
		return len(s)
	}
	return i + end + 1
}

func skipBlockComment(s string, i int) int {
	end := strings.Index(s[i+2:], "*/")
	if end < 0 {
		return len(s)
	}
	return i + 2 + end + 2
}

// classifyBinds assigns default directions: PL/SQL blocks treat every
// bind as potentially IN/OUT until DESCRIBE corrects it; plain SQL binds
// default to IN, since direction is refined by execute options/describe
// rather than guessed up front for DML.
func classifyBinds(kind StatementKind, binds []BindInfo) []BindInfo {
	if kind != StatementPLSQL {
		return binds
	}
	out := make([]BindInfo, len(binds))
	for i, b := range binds {
		b.Direction = BindInOut
		out[i] = b
	}
	return out
}
