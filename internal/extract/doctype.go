package extract

import (
	"path/filepath"
	"strings"
)

// docTypeRule maps filename keywords to a document type.
type docTypeRule struct {
	docType  string
	keywords []string
}

// Rules are checked in order; the first rule with a matching keyword wins.
var docTypeRules = []docTypeRule{
	{"certificate", []string{"death certificate", "death cert"}},
	{"certificate", []string{"birth certificate", "birth cert", "birth announcement"}},
	{"certificate", []string{"marriage", "wedding", "marr"}},
	{"obituary", []string{"obituary", "obit"}},
	{"census", []string{"census"}},
	{"military", []string{"military", "draft", "service", "enlistment"}},
	{"newspaper", []string{"newspaper", "newspapers.com"}},
	{"letter", []string{"letter", "correspondence"}},
	{"photo", []string{"portrait", "enhanced", "photo"}},
	{"certificate", []string{"certificate", "record"}},
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// GuessDocType classifies a document from keywords in its file name.
func GuessDocType(filename string) string {
	lower := strings.ToLower(filename)
	for _, rule := range docTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.docType
			}
		}
	}

	ext := filepath.Ext(lower)
	switch {
	case ext == ".pdf" || ext == ".doc":
		return "document"
	case imageExtensions[ext]:
		return "photo"
	}
	return "other"
}

// IsImage reports whether the file extension is one of the supported image formats.
func IsImage(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}
