package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	parentheticalPattern  = regexp.MustCompile(`\s*\([^)]*\)`)
	trailingNumberPattern = regexp.MustCompile(`\s+\d+$`)
	yearPattern           = regexp.MustCompile(`\b(1[7-9]\d{2}|20[0-3]\d)\b`)
)

// CleanName normalizes a raw name fragment.
//
// Surrounding punctuation, parenthetical asides and a trailing bare number
// are removed and whitespace is collapsed. Names written entirely in upper
// case are converted to Title Case.
func CleanName(raw string) string {
	name := strings.Trim(raw, " _-.,;:'\"")
	name = parentheticalPattern.ReplaceAllString(name, "")
	name = trailingNumberPattern.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")
	if isAllUpper(name) {
		name = titleCase(name)
	}
	return name
}

// isAllUpper reports whether s has at least one cased letter and no lower-case ones.
func isAllUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// titleCase upper-cases the first letter of each word and lower-cases the rest.
// A Caser is stateful, so one is built per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// Years returns the distinct plausible years (1700-2039) in text, in order of first appearance.
func Years(text string) []int {
	var years []int
	seen := make(map[int]bool)
	for _, m := range yearPattern.FindAllStringSubmatch(text, -1) {
		y, err := strconv.Atoi(m[1])
		if err != nil || seen[y] {
			continue
		}
		seen[y] = true
		years = append(years, y)
	}
	return years
}

// dedupeNames removes empty and repeated names, keeping first occurrences.
func dedupeNames(names []string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		unique = append(unique, n)
	}
	return unique
}

func mergeYears(a, b []int) []int {
	out := append([]int(nil), a...)
	for _, y := range b {
		found := false
		for _, x := range out {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			out = append(out, y)
		}
	}
	return out
}
