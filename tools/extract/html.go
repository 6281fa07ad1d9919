package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/mohammad-safakhou/aisearch/internal/helpers"
	aimodels "github.com/mohammad-safakhou/aisearch/models"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// nonContent is removed before any text is read.
const nonContent = "script, style, noscript, nav, header, footer, aside, iframe, frame, frameset, " +
	"object, embed, svg, template, form, " +
	`[role="navigation"], [role="banner"], [role="contentinfo"], [role="complementary"]`

func (x *Extractor) html(rawURL string, raw []byte) (Document, error) {
	if len(raw) > x.limits.HTMLMaxBytes {
		raw = raw[:x.limits.HTMLMaxBytes]
	}

	if x.mode == ModeArticle {
		if doc, ok := x.article(rawURL, raw); ok {
			return doc, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Document{}, err
	}
	title := truncateRunes(pageTitle(doc), x.limits.TitleMaxRunes)
	doc.Find(nonContent).Remove()
	region := contentRegion(doc)

	if x.mode == ModeStructurePreserving {
		markup, err := regionHTML(region)
		if err != nil {
			return Document{}, err
		}
		return Document{Title: title, Body: helpers.SanitizeStructured(markup), Kind: aimodels.SourceKindHTMLStructured}, nil
	}
	return Document{Title: title, Body: plainText(region), Kind: aimodels.SourceKindHTML}, nil
}

// pageTitle prefers <title>, then the first <h1>.
func pageTitle(doc *goquery.Document) string {
	if t := collapse(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := collapse(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return untitled
}

// contentRegion prefers a semantic main-content element over the whole body.
func contentRegion(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", `[role="main"]`} {
		if s := doc.Find(sel).First(); s.Length() > 0 && strings.TrimSpace(s.Text()) != "" {
			return s
		}
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

func regionHTML(region *goquery.Selection) (string, error) {
	if goquery.NodeName(region) == "body" {
		return region.Html()
	}
	return goquery.OuterHtml(region)
}

// plainText joins every text node with single spaces so adjacent block
// elements do not run together.
func plainText(region *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range region.Nodes {
		walk(n)
	}
	return collapse(strings.Join(parts, " "))
}

func (x *Extractor) article(rawURL string, raw []byte) (Document, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		u = &url.URL{}
	}
	art, err := readability.FromReader(bytes.NewReader(raw), u)
	if err != nil {
		x.log.Debug("readability failed, falling back to plain text", zap.String("url", rawURL), zap.Error(err))
		return Document{}, false
	}
	body := collapse(art.TextContent)
	if body == "" {
		return Document{}, false
	}
	title := collapse(art.Title)
	if title == "" {
		title = untitled
	}
	return Document{Title: truncateRunes(title, x.limits.TitleMaxRunes), Body: body, Kind: aimodels.SourceKindHTML}, true
}
