package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"newsvault/internal/core"
	"newsvault/internal/media"
)

// StoryView is the list-item view of an archived story.
type StoryView struct {
	Headline    string
	DisplayDate string // YYYY-MM-DD in UTC
	Description string
	PromoImg    string // Local /media path, empty if none
	Caption     string
	URL         string // Site-local story path
	SectionName string
}

// TagLink is a taxonomy entry rendered as a link.
type TagLink struct {
	Path string
	Name string
}

// ContentBlock is one renderable unit of an article body.
type ContentBlock struct {
	Kind    string // text, header, image, link, quote, html, embed
	Text    string
	URL     string
	Caption string
	HTML    template.HTML
}

// ArticleView is the full-page view of one story.
type ArticleView struct {
	Story    StoryView
	Author   string
	Contents []ContentBlock
	Topics   []TagLink
	Tags     []TagLink
}

// ListView is the data for a list page (global or tag-scoped).
type ListView struct {
	Items    []StoryView
	Page     int
	PrevPage int
	NextPage int
	URLPath  string
}

// storyDoc is the subset of the archived payload the views render.
type storyDoc struct {
	Headlines struct {
		Basic string `json:"basic"`
	} `json:"headlines"`
	Description struct {
		Basic string `json:"basic"`
	} `json:"description"`
	PublishDate string `json:"publish_date"`
	PromoItems  struct {
		Basic struct {
			URL     string `json:"url"`
			Caption string `json:"caption"`
		} `json:"basic"`
	} `json:"promo_items"`
	Credits struct {
		By []struct {
			Name string `json:"name"`
		} `json:"by"`
	} `json:"credits"`
	Taxonomy struct {
		Sections []struct {
			Path string `json:"path"`
			Name string `json:"name"`
		} `json:"sections"`
	} `json:"taxonomy"`
	Websites map[string]struct {
		WebsiteSection struct {
			Name string `json:"name"`
		} `json:"website_section"`
	} `json:"websites"`
	ContentElements []contentElement `json:"content_elements"`
}

type contentElement struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
	Article string `json:"article"`
	Embed   struct {
		Config struct {
			ShorthandScript string `json:"shorthandScript"`
			URL             string `json:"url"`
		} `json:"config"`
	} `json:"embed"`
	ContentElements []contentElement `json:"content_elements"`
}

// newStoryView builds the list-item view for one archived story.
func newStoryView(story core.Story) (StoryView, error) {
	var doc storyDoc
	if err := json.Unmarshal(story.Payload, &doc); err != nil {
		return StoryView{}, fmt.Errorf("failed to decode story %s: %w", story.ID, err)
	}

	view := StoryView{
		Headline:    doc.Headlines.Basic,
		DisplayDate: doc.PublishDate,
		Description: doc.Description.Basic,
		Caption:     doc.PromoItems.Basic.Caption,
		URL:         "/" + story.ID,
	}
	if ts, err := time.Parse(time.RFC3339, doc.PublishDate); err == nil {
		view.DisplayDate = ts.UTC().Format("2006-01-02")
	}
	if doc.PromoItems.Basic.URL != "" {
		view.PromoImg = "/media/" + media.LocalName(doc.PromoItems.Basic.URL)
	}
	for _, site := range doc.Websites {
		if site.WebsiteSection.Name != "" {
			view.SectionName = site.WebsiteSection.Name
			break
		}
	}
	return view, nil
}

// newArticleView builds the full article view for one archived story.
func newArticleView(story core.Story) (ArticleView, error) {
	storyView, err := newStoryView(story)
	if err != nil {
		return ArticleView{}, err
	}

	var doc storyDoc
	if err := json.Unmarshal(story.Payload, &doc); err != nil {
		return ArticleView{}, fmt.Errorf("failed to decode story %s: %w", story.ID, err)
	}

	view := ArticleView{Story: storyView}
	if len(doc.Credits.By) > 0 {
		view.Author = doc.Credits.By[0].Name
	}

	for _, section := range doc.Taxonomy.Sections {
		link := TagLink{Path: "/" + strings.Trim(section.Path, "/"), Name: section.Name}
		switch {
		case strings.HasPrefix(section.Path, "/topics"):
			view.Topics = append(view.Topics, link)
		case strings.HasPrefix(section.Path, "/tags"):
			view.Tags = append(view.Tags, link)
		}
	}

	hasEmbedArticle := false
	for _, elem := range doc.ContentElements {
		if elem.Type == "custom_embed" && elem.Article != "" {
			hasEmbedArticle = true
			break
		}
	}

	for _, elem := range doc.ContentElements {
		if block, ok := contentBlock(elem, hasEmbedArticle); ok {
			view.Contents = append(view.Contents, block)
		}
	}
	return view, nil
}

// contentBlock converts one payload content element into a renderable
// block. Unknown types are dropped. When a story carries spliced embed
// markup, raw_html fallbacks are suppressed in its favor.
func contentBlock(elem contentElement, hasEmbedArticle bool) (ContentBlock, bool) {
	switch elem.Type {
	case "text":
		if elem.Content == "" {
			return ContentBlock{}, false
		}
		return ContentBlock{Kind: "text", HTML: template.HTML(elem.Content)}, true
	case "header":
		if elem.Content == "" {
			return ContentBlock{}, false
		}
		return ContentBlock{Kind: "header", Text: elem.Content}, true
	case "image":
		if elem.URL == "" {
			return ContentBlock{}, false
		}
		return ContentBlock{
			Kind:    "image",
			URL:     "/media/" + media.LocalName(elem.URL),
			Caption: elem.Caption,
		}, true
	case "interstitial_link":
		if elem.URL == "" {
			return ContentBlock{}, false
		}
		text := elem.Content
		if text == "" {
			text = elem.URL
		}
		return ContentBlock{Kind: "link", Text: text, URL: elem.URL}, true
	case "raw_html":
		if hasEmbedArticle {
			return ContentBlock{}, false
		}
		content := strings.TrimSpace(elem.Content)
		content = strings.TrimPrefix(content, "<noscript>")
		content = strings.TrimSuffix(content, "</noscript>")
		if content == "" {
			return ContentBlock{}, false
		}
		return ContentBlock{Kind: "html", HTML: template.HTML(content)}, true
	case "quote":
		for _, inner := range elem.ContentElements {
			if inner.Type == "text" && inner.Content != "" {
				return ContentBlock{Kind: "quote", Text: inner.Content}, true
			}
		}
		return ContentBlock{}, false
	case "custom_embed":
		url := elem.Embed.Config.ShorthandScript
		if url == "" {
			url = elem.Embed.Config.URL
		}
		return ContentBlock{
			Kind: "embed",
			URL:  url,
			HTML: template.HTML(elem.Article),
		}, url != "" || elem.Article != ""
	default:
		return ContentBlock{}, false
	}
}

// newListView builds a list page from resolved stories.
func newListView(stories []core.Story, page int, urlPath string) (ListView, error) {
	view := ListView{
		Items:    make([]StoryView, 0, len(stories)),
		Page:     page,
		PrevPage: page - 1,
		NextPage: page + 1,
		URLPath:  urlPath,
	}
	for _, story := range stories {
		item, err := newStoryView(story)
		if err != nil {
			return ListView{}, err
		}
		view.Items = append(view.Items, item)
	}
	return view, nil
}
