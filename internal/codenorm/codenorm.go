// Package codenorm extracts variable declarations from C# snippets so that
// two submissions can be compared independently of formatting, order,
// comments and the scaffold the learner was given.
package codenorm

import (
	"regexp"
	"sort"
	"strings"
)

var (
	lineComment  = regexp.MustCompile(`//.*`)
	blockComment = regexp.MustCompile(`/\*[\s\S]*?\*/`)

	// Scaffold around the statements. The wrapper patterns stop at the first
	// semicolon so a declaration sharing the line is never swallowed.
	scaffold = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\busing\s+[\w.]+\s*;?`),
		regexp.MustCompile(`(?i)\bnamespace\s+[\w.]+[^{};]*\{`),
		regexp.MustCompile(`(?i)\b((public|private|protected|internal|static|sealed|abstract|partial)\s+)*class\s+\w+[^{};]*\{`),
		regexp.MustCompile(`(?i)\b((public|private|protected|internal|static)\s+)*void\s+Main\s*\([^)]*\)\s*\{`),
	}

	declaration = regexp.MustCompile(`(?i)^(int|string|double|float|bool|char|byte|short|long|decimal|var)\s+\w+\s*=\s*.+`)
	whitespace  = regexp.MustCompile(`\s+`)
	assignment  = regexp.MustCompile(`\s*=\s*`)
	quotes      = regexp.MustCompile(`["']`)
)

var skippedKeywords = map[string]bool{
	"using": true, "namespace": true, "class": true,
	"public": true, "private": true, "protected": true,
	"static": true, "void": true, "return": true,
	"if": true, "else": true, "for": true, "while": true, "foreach": true,
	"switch": true, "case": true, "break": true, "continue": true,
}

// ExtractDeclarations returns the variable declarations found in code, in
// source order, with whitespace collapsed and " = " around the assignment.
func ExtractDeclarations(code string) []string {
	code = lineComment.ReplaceAllString(code, "")
	code = blockComment.ReplaceAllString(code, "")
	for _, re := range scaffold {
		code = re.ReplaceAllString(code, "")
	}
	code = strings.NewReplacer("{", "", "}", "").Replace(code)

	var decls []string
	for _, stmt := range strings.Split(code, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if skippedKeywords[strings.ToLower(strings.Fields(stmt)[0])] {
			continue
		}
		if !declaration.MatchString(stmt) {
			continue
		}
		decls = append(decls, normalizeSpacing(stmt))
	}
	return decls
}

func normalizeSpacing(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = assignment.ReplaceAllString(s, " = ")
	return strings.TrimSpace(s)
}

// Canonical lower-cases each declaration, unifies quote characters and sorts
// the result. The input slice is not modified.
func Canonical(decls []string) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		d = normalizeSpacing(strings.ToLower(d))
		out[i] = quotes.ReplaceAllString(d, `"`)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether two declaration lists are the same multiset once
// canonicalized.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	ca, cb := Canonical(a), Canonical(b)
	for i := range ca {
		if ca[i] != cb[i] {
			return false
		}
	}
	return true
}
