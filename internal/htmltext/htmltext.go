// Package htmltext reduces HTML documents to the plain text the extractor
// matches its patterns against.
package htmltext

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize returns the text content of raw with every run of whitespace
// collapsed to a single space. Script and style contents are kept, the same
// as any other text node. Empty or unparsable input yields "".
func Normalize(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// NormalizeLower is Normalize followed by Italian lower-casing.
func NormalizeLower(raw []byte) string {
	return Lower(Normalize(raw))
}

// Lower case-folds text with Italian rules. A new Caser is built per call
// because a Caser keeps state and must not be shared between goroutines.
func Lower(text string) string {
	return cases.Lower(language.Italian).String(text)
}
