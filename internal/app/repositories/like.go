package repositories

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so s matches literally; use with ESCAPE '\'
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ContainsPattern builds a LIKE pattern matching s anywhere
func ContainsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}

// PrefixPattern builds a LIKE pattern matching values starting with s
func PrefixPattern(s string) string {
	return EscapeLike(s) + "%"
}
