package ingestion

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Image extraction tries a fixed fallback chain over the feed item; the
// first non-empty hit wins:
//
//	1. media:content extension entries (array or scalar)
//	2. media tag regex over the raw markup
//	3. enclosures with an image MIME type
//	4. inline <img> in the HTML content/description
//	5. media:thumbnail, then the item/feed image fields
var mediaTagRe = regexp.MustCompile(`<media:(?:content|thumbnail)[^>]+url="([^"]+)"`)

// ExtractImageURL finds the best candidate image for a feed item, or ""
// when no usable image exists.
func ExtractImageURL(item *gofeed.Item) string {
	if item == nil {
		return ""
	}

	if u := fromMediaContent(item); u != "" {
		return u
	}
	if u := fromRawMarkup(item); u != "" {
		return u
	}
	if u := fromEnclosures(item); u != "" {
		return u
	}
	if u := fromInlineImg(item.Content); u != "" {
		return u
	}
	if u := fromInlineImg(item.Description); u != "" {
		return u
	}
	return fromThumbnailFallbacks(item)
}

func fromMediaContent(item *gofeed.Item) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, e := range media["content"] {
		u := strings.TrimSpace(e.Attrs["url"])
		if u == "" {
			continue
		}
		// Skip explicit non-image media entries; untyped ones pass.
		if t := e.Attrs["type"]; t != "" && !strings.HasPrefix(t, "image/") {
			continue
		}
		if m := e.Attrs["medium"]; m != "" && m != "image" {
			continue
		}
		return u
	}
	return ""
}

func fromRawMarkup(item *gofeed.Item) string {
	for _, raw := range []string{item.Content, item.Description} {
		if m := mediaTagRe.FindStringSubmatch(raw); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

func fromEnclosures(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

func fromInlineImg(html string) string {
	if !strings.Contains(html, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return strings.TrimSpace(src)
}

func fromThumbnailFallbacks(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, e := range media["thumbnail"] {
			if u := strings.TrimSpace(e.Attrs["url"]); u != "" {
				return u
			}
		}
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	return ""
}

// HostMatches reports whether rawURL's host ends with any of the given
// host suffixes. Used to spot ephemeral CDN images that must be rehosted
// before their URLs expire.
func HostMatches(rawURL string, hosts []string) bool {
	lower := strings.ToLower(rawURL)
	for _, h := range hosts {
		if h == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}
