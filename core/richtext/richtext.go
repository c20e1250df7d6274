// Package richtext cleans user authored HTML before it is stored or rendered.
package richtext

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// nbsp keeps an otherwise empty paragraph visible (and clickable) once rendered.
// It is kept as a literal U+00A0 so that a second pass leaves it untouched.
const nbsp = "\u00a0"

var (
	policy     *bluemonday.Policy
	policyInit sync.Once

	emptyParagraph = regexp.MustCompile(`<p(\s[^>]*)?>\s*</p>`)
	media          = regexp.MustCompile(`(?i)<(img|video|audio)[\s>/]`)
	tags           = regexp.MustCompile(`<[^>]*>`)
	entities       = strings.NewReplacer("&nbsp;", " ", "&#160;", " ", nbsp, " ")
)

func getPolicy() *bluemonday.Policy {
	policyInit.Do(func() {
		policy = bluemonday.UGCPolicy().
			AllowElements("span").
			AllowAttrs("class").OnElements("span")
	})
	return policy
}

// Sanitize strips scripts and other unsafe markup from s and normalizes empty paragraphs.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	clean := getPolicy().Sanitize(s)
	return emptyParagraph.ReplaceAllString(clean, "<p${1}>"+nbsp+"</p>")
}

// IsBlank reports whether s has neither visible text nor media once sanitized.
func IsBlank(s string) bool {
	clean := Sanitize(s)
	if media.MatchString(clean) {
		return false
	}
	text := tags.ReplaceAllString(clean, "")
	return strings.TrimSpace(entities.Replace(text)) == ""
}
