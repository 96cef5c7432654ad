package llm

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/competitiveedge/engine/internal/domain"
)

// Content limits sent to the extraction model, in characters
const (
	defaultContentLimit  = 10000
	amazonContentLimit   = 15000
	featureBulletsLimit  = 2000
	minFallbackTitleSize = 5
)

var titleSelectors = []string{"#productTitle", ".product-title", "h1", "h2"}

// PreparePageContent picks the text sent to the extraction model. Amazon
// product pages get their title and feature bullets lifted out of the HTML
// since the rendered text often buries them.
func PreparePageContent(page domain.PageContent) string {
	content := page.Text
	if strings.TrimSpace(content) == "" {
		content = page.HTML
	}

	limit := defaultContentLimit
	if isAmazonHost(page.URL) {
		limit = amazonContentLimit
		if isAmazonProductPath(page.URL) && page.HTML != "" {
			if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML)); err == nil {
				if title := selectText(doc, "#productTitle", ".product-title"); title != "" {
					content = "Product Title: " + title + "\n\n" + content
				}
				if features := featureBullets(doc); features != "" {
					content += "\n\nProduct Features:\n" + features
				}
			}
		}
	}

	return truncateRunes(content, limit)
}

// TitleFromHTML returns the first plausible product title in html
func TitleFromHTML(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, sel := range titleSelectors {
		title := selectText(doc, sel)
		if len(title) > minFallbackTitleSize {
			return title
		}
	}
	return ""
}

func selectText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		text := collapseSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

func featureBullets(doc *goquery.Document) string {
	var lines []string
	doc.Find("#feature-bullets li").Each(func(_ int, s *goquery.Selection) {
		if line := collapseSpace(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		return truncateRunes(collapseSpace(doc.Find("#feature-bullets").Text()), featureBulletsLimit)
	}
	return truncateRunes(strings.Join(lines, "\n"), featureBulletsLimit)
}

func isAmazonHost(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "amazon.com" || strings.HasSuffix(host, ".amazon.com")
}

func isAmazonProductPath(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, "/dp/") || strings.Contains(u.Path, "/gp/product/")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
