package sqlexec

import (
	"errors"
	"strings"
	"unicode"
)

const RejectedMessage = "Only single read-only SELECT statements are allowed."

var (
	ErrEmptyStatement    = errors.New("empty statement")
	ErrMultipleStatement = errors.New("multiple statements")
	ErrNotSelect         = errors.New("statement is not a SELECT")
	ErrWriteKeyword      = errors.New("statement contains a data-modifying keyword")
	ErrSessionKeyword    = errors.New("statement contains a transaction or session command")
)

// writeKeywords may not appear as bare words anywhere in an accepted
// statement. INTO covers SELECT ... INTO, UPDATE covers FOR UPDATE locks.
var writeKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
	"TRUNCATE": true, "DROP": true, "ALTER": true, "CREATE": true,
	"GRANT": true, "REVOKE": true, "COPY": true, "CALL": true,
	"INTO": true, "LOCK": true, "VACUUM": true, "REINDEX": true,
	"REFRESH": true, "EXECUTE": true,
}

// sessionKeywords end or reshape the surrounding read-only transaction.
// END is absent because CASE expressions use it.
var sessionKeywords = map[string]bool{
	"COMMIT": true, "ROLLBACK": true, "BEGIN": true, "START": true,
	"SET": true, "RESET": true, "ABORT": true, "SAVEPOINT": true,
	"RELEASE": true, "PREPARE": true, "DEALLOCATE": true, "DISCARD": true,
	"LISTEN": true, "NOTIFY": true,
}

// CheckReadOnly accepts exactly one SELECT or WITH statement with at most one
// trailing semicolon. Words inside string literals, quoted identifiers and
// comments are ignored.
func CheckReadOnly(sql string) error {
	words, semicolons, trailing := scan(sql)
	if len(words) == 0 {
		return ErrEmptyStatement
	}
	if semicolons > 1 || (semicolons == 1 && !trailing) {
		return ErrMultipleStatement
	}
	if words[0] != "SELECT" && words[0] != "WITH" {
		return ErrNotSelect
	}
	for _, w := range words {
		if writeKeywords[w] {
			return ErrWriteKeyword
		}
		if sessionKeywords[w] {
			return ErrSessionKeyword
		}
	}
	return nil
}

// scan returns the upper-cased bare words of sql, the number of statement
// separators, and whether nothing but whitespace or comments follows the
// last separator.
func scan(sql string) (words []string, semicolons int, trailing bool) {
	rs := []rune(sql)
	n := len(rs)
	afterSemi := false

	for i := 0; i < n; {
		r := rs[i]
		if !unicode.IsSpace(r) && r != ';' && !isCommentStart(rs, i) {
			afterSemi = false
		}
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '-' && i+1 < n && rs[i+1] == '-':
			for i < n && rs[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < n && rs[i+1] == '*':
			i += 2
			for i < n && !(rs[i] == '*' && i+1 < n && rs[i+1] == '/') {
				i++
			}
			i += 2
		case r == '\'' || r == '"':
			i = skipQuoted(rs, i)
		case r == '$':
			i = skipDollarQuoted(rs, i)
		case r == ';':
			semicolons++
			afterSemi = true
			i++
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < n && isWordRune(rs[j]) {
				j++
			}
			// E'...' is an escape string: backslash escapes the next rune.
			if j-i == 1 && (rs[i] == 'E' || rs[i] == 'e') && j < n && rs[j] == '\'' {
				i = skipEscapeString(rs, j)
				continue
			}
			words = append(words, strings.ToUpper(string(rs[i:j])))
			i = j
		default:
			i++
		}
	}
	return words, semicolons, afterSemi
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isCommentStart(rs []rune, i int) bool {
	if i+1 >= len(rs) {
		return false
	}
	return (rs[i] == '-' && rs[i+1] == '-') || (rs[i] == '/' && rs[i+1] == '*')
}

// skipQuoted returns the index after the literal opened at rs[i]. A doubled
// quote character is an escape.
func skipQuoted(rs []rune, i int) int {
	quote := rs[i]
	for i++; i < len(rs); i++ {
		if rs[i] != quote {
			continue
		}
		if i+1 < len(rs) && rs[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(rs)
}

// skipEscapeString returns the index after the E'...' literal whose opening
// quote is rs[i]. Both \' and '' escape a quote.
func skipEscapeString(rs []rune, i int) int {
	for i++; i < len(rs); i++ {
		switch rs[i] {
		case '\\':
			i++
		case '\'':
			if i+1 < len(rs) && rs[i+1] == '\'' {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(rs)
}

// skipDollarQuoted skips a $tag$ ... $tag$ body. A lone $ (positional
// parameter) is skipped as a single rune.
func skipDollarQuoted(rs []rune, i int) int {
	j := i + 1
	for j < len(rs) && isWordRune(rs[j]) {
		j++
	}
	if j >= len(rs) || rs[j] != '$' {
		return i + 1
	}
	tag := rs[i : j+1]
	for k := j + 1; k+len(tag) <= len(rs); k++ {
		if string(rs[k:k+len(tag)]) == string(tag) {
			return k + len(tag)
		}
	}
	return len(rs)
}
