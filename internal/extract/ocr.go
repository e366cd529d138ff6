package extract

import (
	"regexp"
	"strings"
)

var (
	// "Firstname [M.] Lastname [Lastname]"
	titleCaseNamePattern = regexp.MustCompile(`\b([A-Z][a-z]{1,20}(?:\s+[A-Z]\.?)?\s+[A-Z][a-z]{1,20}(?:\s+[A-Z][a-z]{1,20})?)\b`)
	// "FIRSTNAME M. LASTNAME" or "FIRSTNAME LASTNAME"
	upperCaseNamePattern = regexp.MustCompile(`\b([A-Z]{2,20}\s+[A-Z]\.?\s+[A-Z]{2,20}|[A-Z]{2,20}\s+[A-Z]{2,20})\b`)
)

// noiseWords are form labels and record vocabulary that look like names in OCR output.
var noiseWords = map[string]bool{
	"COUNTY": true, "TOWNSHIP": true, "STATE": true, "CERTIFICATE": true, "DEPARTMENT": true,
	"REGISTRAR": true, "BUREAU": true, "VITAL": true, "STATISTICS": true, "RECORD": true,
	"HEREBY": true, "CERTIFY": true, "ISSUED": true, "FILED": true, "PAGE": true, "VOLUME": true,
	"DISTRICT": true, "PRECINCT": true, "WARD": true, "RESIDENCE": true, "OCCUPATION": true,
	"WITNESS": true, "CHURCH": true, "CEMETERY": true, "FUNERAL": true, "HOSPITAL": true,
	"BORN": true, "DIED": true, "MARRIED": true, "BAPTIZED": true, "BURIED": true,
	"FATHER": true, "MOTHER": true, "HUSBAND": true, "WIFE": true, "CHILD": true, "SON": true, "DAUGHTER": true,
	"NAME": true, "DATE": true, "PLACE": true, "BIRTH": true, "DEATH": true, "MARRIAGE": true,
	"NEWSPAPERS": true, "NEWS": true, "PRESS": true, "TIMES": true, "STANDARD": true, "COLUMBIA": true,
}

// FreeTextNames finds name-shaped word runs in OCR text.
// Title-case runs are found first, then ALL-CAPS runs converted to Title Case.
// Candidates containing a noise word are rejected.
func FreeTextNames(text string) []string {
	var names []string

	for _, m := range titleCaseNamePattern.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		words := strings.Fields(candidate)
		if hasNoiseWord(words) {
			continue
		}
		long := 0
		for _, w := range words {
			if len(w) > 1 {
				long++
			}
		}
		if long >= 2 {
			names = append(names, candidate)
		}
	}

	for _, m := range upperCaseNamePattern.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		words := strings.Fields(candidate)
		if hasNoiseWord(words) || len(words) < 2 {
			continue
		}
		names = append(names, titleCase(candidate))
	}

	return dedupeNames(names)
}

func hasNoiseWord(words []string) bool {
	for _, w := range words {
		if noiseWords[strings.ToUpper(w)] {
			return true
		}
	}
	return false
}
