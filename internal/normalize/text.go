package normalize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe = regexp.MustCompile(`<[^>]*>`)

	htmlEntityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
	)
)

// Text strips HTML tags, decodes common entities, and collapses whitespace.
func Text(raw string) string {
	cleaned := htmlTagRe.ReplaceAllString(raw, " ")
	cleaned = htmlEntityReplacer.Replace(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}
