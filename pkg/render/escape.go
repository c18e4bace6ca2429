package render

import (
	"strconv"
	"strings"
)

const (
	htmlSpecials = `&<>"'`
	attrSpecials = "&<>\"'\n\r\t"
)

// escapeHTML escapes text for safe inclusion in HTML content.
func escapeHTML(s string) string {
	return escape(s, htmlSpecials)
}

// escapeAttr escapes text for safe inclusion in HTML attribute values. In
// addition to the HTML entities it escapes whitespace that would otherwise
// be normalized by attribute parsing.
func escapeAttr(s string) string {
	return escape(s, attrSpecials)
}

// EscapeHTML is escapeHTML for callers outside the package.
func EscapeHTML(s string) string {
	return escapeHTML(s)
}

func escape(s, specials string) string {
	i := strings.IndexAny(s, specials)
	if i < 0 {
		return s
	}

	var buf strings.Builder
	buf.Grow(len(s) + 16)
	buf.WriteString(s[:i])
	for _, r := range s[i:] {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		case '\n', '\r', '\t':
			if strings.ContainsRune(specials, r) {
				buf.WriteString("&#" + strconv.Itoa(int(r)) + ";")
			} else {
				buf.WriteRune(r)
			}
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
