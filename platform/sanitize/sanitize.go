// Package sanitize cleans free text received from customers and form
// gateways before it is stored or forwarded to Podio.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var spaceRunes = regexp.MustCompile(`[ \t]+`)

// StripHTML keeps only the text of s. It runs twice so tags that arrive
// entity-encoded are removed as well.
func StripHTML(s string) string {
	return textOnly(textOnly(s))
}

func textOnly(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// Text strips HTML, drops control characters other than newlines and
// collapses runs of spaces. Emoji and accents are kept.
func Text(s string) string {
	s = StripHTML(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	s = spaceRunes.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Line is Text for single-line fields such as city names.
func Line(s string) string {
	return strings.Join(strings.Fields(Text(s)), " ")
}
