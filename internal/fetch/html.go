package fetch

import (
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

var (
	metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_\-]+)`)
	blockTagRes   = func() []*regexp.Regexp {
		var out []*regexp.Regexp
		for _, tag := range []string{"script", "style", "noscript", "svg", "nav", "footer"} {
			out = append(out, regexp.MustCompile(`(?is)<`+tag+`[^>]*>.*?</`+tag+`>`))
		}
		return out
	}()
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRe   = regexp.MustCompile(`[ \t\r\f\v]+`)
	nlRe      = regexp.MustCompile(`\s*\n\s*(\n\s*)+`)

	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#x27;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
	)
)

// stripHTML removes non-content blocks, strips tags, decodes common entities
// and collapses whitespace.
func stripHTML(html string) string {
	html = commentRe.ReplaceAllString(html, "")
	for _, re := range blockTagRes {
		html = re.ReplaceAllString(html, "")
	}
	html = tagRe.ReplaceAllString(html, " ")
	html = entityReplacer.Replace(html)
	html = spaceRe.ReplaceAllString(html, " ")
	html = nlRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}

// isHTML reports whether a response should be treated as markup.
func isHTML(mediaType string, body []byte) bool {
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return true
	case "":
		head := strings.ToLower(string(body[:min(len(body), 512)]))
		return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
	}
	return false
}

// decodeBody converts a response body to UTF-8 text. The charset comes from
// the Content-Type header, then a <meta charset> tag. HTML is reduced to
// plaintext.
func decodeBody(contentType string, body []byte) string {
	mediaType, params, _ := mime.ParseMediaType(contentType)
	mediaType = strings.ToLower(mediaType)
	html := isHTML(mediaType, body)

	charset := params["charset"]
	if charset == "" && html {
		if m := metaCharsetRe.FindSubmatch(body[:min(len(body), 4096)]); len(m) > 1 {
			charset = string(m[1])
		}
	}

	text := toUTF8(charset, body)
	if html {
		return stripHTML(text)
	}
	return strings.TrimSpace(text)
}

func toUTF8(charset string, body []byte) string {
	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "utf8") {
		if enc, err := htmlindex.Get(charset); err == nil {
			if out, err := enc.NewDecoder().Bytes(body); err == nil {
				return string(out)
			}
		}
	}
	if utf8.Valid(body) {
		return string(body)
	}
	return strings.ToValidUTF8(string(body), "�")
}
