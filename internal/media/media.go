// Package media discovers remote assets referenced by a story and mirrors
// them to local storage so archived pages render without the origin CDN.
package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"newsvault/internal/core"

	"github.com/PuerkitoBio/goquery"
)

// AssetURLs collects every remote asset a story references: the promo image
// plus every URL-valued field under the configured CDN prefix. The story
// payload is walked as a decoded JSON tree, so discovery does not depend on
// how the feed formats its output.
func AssetURLs(raw json.RawMessage, cdnPrefix string) []core.Asset {
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var assets []core.Asset
	add := func(url string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		assets = append(assets, core.Asset{URL: url, LocalName: LocalName(url)})
	}

	if promo := promoImageURL(tree); promo != "" {
		add(promo)
	}
	collectStrings(tree, func(s string) {
		if cdnPrefix != "" && strings.HasPrefix(s, cdnPrefix) {
			add(s)
		}
	})
	return assets
}

// promoImageURL returns promo_items.basic.url if present.
func promoImageURL(tree any) string {
	obj, ok := tree.(map[string]any)
	if !ok {
		return ""
	}
	promo, ok := obj["promo_items"].(map[string]any)
	if !ok {
		return ""
	}
	basic, ok := promo["basic"].(map[string]any)
	if !ok {
		return ""
	}
	url, _ := basic["url"].(string)
	return url
}

// collectStrings walks a decoded JSON tree depth-first, calling fn for
// every string value. Object keys are visited in sorted order so results
// are deterministic.
func collectStrings(tree any, fn func(string)) {
	switch v := tree.(type) {
	case string:
		fn(v)
	case []any:
		for _, elem := range v {
			collectStrings(elem, fn)
		}
	case map[string]any:
		sortedKeys := make([]string, 0, len(v))
		for k := range v {
			sortedKeys = append(sortedKeys, k)
		}
		sort.Strings(sortedKeys)
		for _, k := range sortedKeys {
			collectStrings(v[k], fn)
		}
	}
}

// LocalName maps an asset URL to its filename under the media directory:
// the final path segment with any query string stripped.
func LocalName(url string) string {
	name := url
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.IndexByte(name, '?'); idx >= 0 {
		name = name[:idx]
	}
	return name
}

// ExtractEmbedMarkup cleans fetched embed HTML into markup safe to splice
// into an archived story: noscript fallbacks are unwrapped and scripts,
// styles and iframes dropped.
func ExtractEmbedMarkup(html string) (string, error) {
	html = strings.TrimSpace(html)
	html = strings.TrimPrefix(html, "<noscript>")
	html = strings.TrimSuffix(html, "</noscript>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse embed markup: %w", err)
	}
	doc.Find("script, style, iframe").Remove()

	var buf bytes.Buffer
	body := doc.Find("body")
	bodyHTML, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render embed markup: %w", err)
	}
	buf.WriteString(strings.TrimSpace(bodyHTML))
	return buf.String(), nil
}
