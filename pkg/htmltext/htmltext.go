// Package htmltext derives the plain-text alternative of an HTML email body.
package htmltext

import (
	"regexp"
	"strings"
)

var (
	breakRe     = regexp.MustCompile(`(?i)<br\s*/?>`)
	paragraphRe = regexp.MustCompile(`(?i)</p>`)
	divRe       = regexp.MustCompile(`(?i)</div>`)
	listItemRe  = regexp.MustCompile(`(?i)</li>`)
	headingRe   = regexp.MustCompile(`(?i)</h[1-6]>`)
	tagRe       = regexp.MustCompile(`<[^>]*>`)
	blankRunRe  = regexp.MustCompile(`\n\s*\n\s*\n`)
	spaceRunRe  = regexp.MustCompile(`[ \t]+`)
)

// entity replacements are applied in order; &amp; runs before &lt; so
// "&amp;lt;" decodes to "<".
var entities = []struct{ from, to string }{
	{"&nbsp;", " "},
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
	{"&apos;", "'"},
	{"&ndash;", "–"},
	{"&mdash;", "—"},
}

// FromHTML converts html into readable plain text.
func FromHTML(html string) string {
	if html == "" {
		return ""
	}

	s := breakRe.ReplaceAllString(html, "\n")
	s = paragraphRe.ReplaceAllString(s, "\n\n")
	s = divRe.ReplaceAllString(s, "\n")
	s = listItemRe.ReplaceAllString(s, "\n")
	s = headingRe.ReplaceAllString(s, "\n\n")
	s = tagRe.ReplaceAllString(s, "")

	for _, e := range entities {
		s = strings.ReplaceAll(s, e.from, e.to)
	}

	s = blankRunRe.ReplaceAllString(s, "\n\n")
	s = spaceRunRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
