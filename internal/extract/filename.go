package extract

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	seqPrefixPattern  = regexp.MustCompile(`^(\d{4})_(.+)$`)
	hashSuffixPattern = regexp.MustCompile(`(?i)^(.+?)_[0-9a-f]{8}$`)
	newspaperPattern  = regexp.MustCompile(`(?i)Newspapers\.com\s*-\s*(.+?)\s*-\s*(\d{1,2}\s+\w+\s+\d{4})\s*-\s*\d+\s+(.+)`)

	obituaryPattern          = regexp.MustCompile(`(?i)^Obituary\s+for\s+(.+?)(?:\s*\(Aged\s+\d+\))?$`)
	marriagePattern          = regexp.MustCompile(`(?i)^Marriage\s+of\s+(.+?)\s*[_&]\s*(.+)`)
	birthAnnouncementPattern = regexp.MustCompile(`(?i)^Birth\s+announcement\s+(.+)`)

	// Applied in order to descriptions that are not newspaper clippings.
	descriptionNoise = []*regexp.Regexp{
		regexp.MustCompile(`(?i)'s?\s+(Portrait|Photo|Picture|Image)\b.*`),
		regexp.MustCompile(`(?i)\s+(Enhanced|Colorized|Restored)\b.*`),
		regexp.MustCompile(`(?i)\bDeath Certificate\b`),
		regexp.MustCompile(`(?i)\bBirth\s*\d{4}\b`),
		regexp.MustCompile(`(?i)\s+of\s+\w+\b.*`),
		regexp.MustCompile(`(?i)\s+(top|bottom|left|right|front|back|row)\b.*`),
	}

	cameraDefaultPattern = regexp.MustCompile(`(?i)^(IMG|image|photo|DSC|DSCN|pic)(\b|[_\d])`)
	pubYearPattern       = regexp.MustCompile(`\b(\d{4})\b`)
)

// FilenameInfo is what can be read from an archive export file name,
// e.g. "0001_Obituary for Thomas J. Lack_a1b2c3d4.jpg".
type FilenameInfo struct {
	Description string // Stem without sequence prefix and hash suffix
	SeqNum      int    // Leading sequence number, 0 if absent
	Newspaper   string // Publication name for newspaper clippings
	PubDate     string // Publication date as written
	Names       []string
	Years       []int
}

// ParseFilename extracts the description, candidate names and years from a file name.
func ParseFilename(filename string) FilenameInfo {
	stem := stemOf(filename)

	var info FilenameInfo
	if m := seqPrefixPattern.FindStringSubmatch(stem); m != nil {
		info.SeqNum, _ = strconv.Atoi(m[1])
		stem = m[2]
	}
	if m := hashSuffixPattern.FindStringSubmatch(stem); m != nil {
		stem = m[1]
	}
	info.Description = strings.TrimSpace(stem)

	var names []string
	if m := newspaperPattern.FindStringSubmatch(info.Description); m != nil {
		info.Newspaper = m[1]
		info.PubDate = m[2]
		if y := pubYearPattern.FindStringSubmatch(m[2]); y != nil {
			if year, err := strconv.Atoi(y[1]); err == nil {
				info.Years = append(info.Years, year)
			}
		}
		content := strings.TrimSpace(m[3])
		names = templatedNames(content)
		if len(names) == 0 {
			names = append(names, CleanName(content))
		}
	} else {
		names = templatedNames(info.Description)
		if len(names) == 0 {
			if name, ok := descriptionName(info.Description); ok {
				names = append(names, name)
			}
		}
	}

	info.Years = mergeYears(info.Years, Years(info.Description))

	for _, n := range names {
		if len(n) > 2 {
			info.Names = append(info.Names, n)
		}
	}
	info.Names = dedupeNames(info.Names)
	return info
}

// stemOf drops the directory and file extension. A trailing ". Word" from an
// initial is not an extension.
func stemOf(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if len(ext) > 6 || strings.ContainsAny(ext, " _") {
		return base
	}
	return strings.TrimSuffix(base, ext)
}

// templatedNames applies the obituary, marriage and birth announcement templates.
func templatedNames(content string) []string {
	var names []string
	if m := obituaryPattern.FindStringSubmatch(content); m != nil {
		names = append(names, CleanName(m[1]))
	}
	if m := marriagePattern.FindStringSubmatch(content); m != nil {
		names = append(names, CleanName(m[1]), CleanName(m[2]))
	}
	if m := birthAnnouncementPattern.FindStringSubmatch(content); m != nil {
		names = append(names, CleanName(m[1]))
	}
	return names
}

// descriptionName strips photo and document wording from a free description
// and returns what is left if it still looks like a name.
func descriptionName(desc string) (string, bool) {
	for _, re := range descriptionNoise {
		desc = re.ReplaceAllString(desc, "")
	}
	desc = strings.Trim(desc, " _-,")
	if desc == "" || cameraDefaultPattern.MatchString(desc) {
		return "", false
	}
	if len(strings.Fields(desc)) >= 2 || len(desc) > 3 {
		return CleanName(desc), true
	}
	return "", false
}
