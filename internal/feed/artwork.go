package feed

import (
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// artworkURL resolves the poster image for an item. Feeds publish images in
// wildly different places, so the lookup is a priority chain:
//
//  1. media:content with medium="image" or an image file extension
//  2. media:thumbnail
//  3. an image-typed enclosure
//  4. the first <img> in the description HTML
//  5. the first <img> in content:encoded (WordPress puts the full post there)
//  6. an og:image meta tag embedded in the description
func artworkURL(it *gofeed.Item) string {
	if media, ok := it.Extensions["media"]; ok {
		for _, mc := range media["content"] {
			u := mc.Attrs["url"]
			if u != "" && (mc.Attrs["medium"] == "image" || hasImageExtension(u)) {
				return u
			}
		}
		for _, mt := range media["thumbnail"] {
			if u := mt.Attrs["url"]; u != "" {
				return u
			}
		}
	}
	for _, enc := range it.Enclosures {
		if enc != nil && enc.URL != "" && strings.Contains(enc.Type, "image") {
			return enc.URL
		}
	}
	if u := firstImageSrc(it.Description); u != "" {
		return u
	}
	if u := firstImageSrc(it.Content); u != "" {
		return u
	}
	return ogImage(it.Description)
}

func hasImageExtension(rawURL string) bool {
	u := strings.ToLower(rawURL)
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(u, ext) {
			return true
		}
	}
	return false
}

// firstImageSrc returns the source of the first <img> tag in an HTML
// fragment, accepting the lazy-load attribute variants used by WordPress
// themes.
func firstImageSrc(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return ""
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "img" || !hasAttr {
			continue
		}
		attrs := tagAttrs(z)
		for _, key := range []string{"src", "data-src", "data-lazy-src"} {
			if u := attrs[key]; u != "" {
				return u
			}
		}
	}
}

// ogImage finds <meta property="og:image" content="..."> in an HTML
// fragment, tolerating either attribute order.
func ogImage(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return ""
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "meta" || !hasAttr {
			continue
		}
		attrs := tagAttrs(z)
		if attrs["property"] == "og:image" && attrs["content"] != "" {
			return attrs["content"]
		}
	}
}

func tagAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		k, v, more := z.TagAttr()
		attrs[string(k)] = string(v)
		if !more {
			break
		}
	}
	return attrs
}
