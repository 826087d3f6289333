package htmltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"paragraphs", "<p>Hi</p><p>There</p>", "Hi\n\nThere"},
		{"line break variants", "a<br>b<BR/>c<br />d", "a\nb\nc\nd"},
		{"entities", "<b>Tom &amp; Jerry</b> &lt;3", "Tom & Jerry <3"},
		{"double escaped", "&amp;lt;", "<"},
		{"dashes and quotes", "a &ndash; b &mdash; &quot;c&quot; &#39;d&apos;", "a – b — \"c\" 'd'"},
		{"nbsp collapses", "a&nbsp;&nbsp; b", "a b"},
		{"heading and list", "<h1>Title</h1><ul><li>one</li><li>two</li></ul>", "Title\n\none\ntwo"},
		{"blank runs squeezed", "<div>a</div>\n\n\n\n<div>b</div>", "a\n\nb"},
		{"attributes stripped", `<a href="https://x.test">link</a>`, "link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromHTML(tt.in))
		})
	}
}
