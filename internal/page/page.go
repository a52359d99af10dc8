// Package page reads video identity and text from YouTube watch pages.
package page

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// UnknownTitle is used when no title element is present.
const UnknownTitle = "Unknown Title"

var videoIDPattern = regexp.MustCompile(`[?&]v=([^&#]+)`)

// VideoIDFromURL returns the value of the v= query parameter. The ID is
// treated as opaque.
func VideoIDFromURL(raw string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Selectors are tried in order; the first match wins.
var (
	titleSelectors = []string{
		"h1.ytd-watch-metadata yt-formatted-string",
		"#watch-headline-title",
		".title",
		"h1.title",
		".watch-title",
		`h1[class*="title"]`,
		".ytd-video-primary-info-renderer h1",
	}

	descriptionSelectors = []string{
		"#description-text",
		"#watch-description-text",
		".description",
		"#description",
		".watch-description",
		"#meta-contents #description",
		".ytd-video-secondary-info-renderer #description",
		".ytd-expandable-video-description-body-renderer",
		"#description-inline-expander",
		`yt-formatted-string[slot="content"]`,
	}
)

// WatchPage is what the tracker needs from a watch page.
type WatchPage struct {
	VideoID     string `json:"videoId,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ParseWatchPage extracts the title and description from watch page HTML.
// Rendered elements are preferred; the page's meta tags are the fallback
// for server-rendered HTML.
func ParseWatchPage(html []byte) (WatchPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return WatchPage{}, fmt.Errorf("parse watch page: %w", err)
	}

	p := WatchPage{
		Title:       firstText(doc, titleSelectors, false),
		Description: firstText(doc, descriptionSelectors, true),
	}

	if p.Title == "" {
		p.Title = metaContent(doc, `meta[name="title"]`, `meta[property="og:title"]`)
	}
	if p.Title == "" {
		p.Title = UnknownTitle
	}
	if p.Description == "" {
		p.Description = metaContent(doc, `meta[name="description"]`, `meta[property="og:description"]`)
	}

	if id, ok := metaAttr(doc, `meta[itemprop="videoId"]`, "content"); ok && id != "" {
		p.VideoID = id
	} else if href, ok := metaAttr(doc, `link[rel="canonical"]`, "href"); ok {
		p.VideoID, _ = VideoIDFromURL(href)
	}

	return p, nil
}

// firstText returns the text of the first element matching a selector.
// With needText, elements whose text is blank are skipped.
func firstText(doc *goquery.Document, selectors []string, needText bool) string {
	for _, sel := range selectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(s.Text())
		if text != "" || !needText {
			return text
		}
	}
	return ""
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := metaAttr(doc, sel, "content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func metaAttr(doc *goquery.Document, selector, attr string) (string, bool) {
	return doc.Find(selector).First().Attr(attr)
}

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote|yt-formatted-string)[\s>/]`)

// DescriptionText converts an HTML description to text the chapter scanner
// can read. Input without markup is returned unchanged.
func DescriptionText(s string) string {
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		// If conversion fails, return the original string
		return s
	}

	return strings.TrimSpace(markdown)
}
