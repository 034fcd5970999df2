package collector

import (
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/papermux/papermux/utils"
)

// itemContext carries one matched listing item through the field updaters.
type itemContext struct {
	selection *goquery.Selection
	recipe    SelectorRecipe
	resolve   func(string) string
	paper     CandidatePaper
}

// ExtractFromHTML parses pageHTML and runs the recipe over it, resolving
// links against baseURL. Returns the extracted papers and how many matched
// items were dropped for missing a title or URL.
func ExtractFromHTML(pageHTML string, recipe SelectorRecipe, baseURL string) ([]CandidatePaper, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, 0, err
	}
	base, _ := url.Parse(baseURL)
	papers, skipped := ExtractFromDocument(doc, recipe, base)
	return papers, skipped, nil
}

// ExtractFromDocument runs the recipe over an already parsed document.
func ExtractFromDocument(doc *goquery.Document, recipe SelectorRecipe, base *url.URL) ([]CandidatePaper, int) {
	var papers []CandidatePaper
	skipped := 0
	doc.Find(recipe.Item).Each(func(_ int, selection *goquery.Selection) {
		paper, err := PaperFromSelection(selection, recipe, func(href string) string {
			return resolveURL(base, href)
		})
		if err != nil {
			skipped++
			return
		}
		papers = append(papers, paper)
	})
	return papers, skipped
}

// PaperFromSelection extracts one candidate paper from a matched item node.
// resolve turns a possibly relative href into an absolute URL.
func PaperFromSelection(selection *goquery.Selection, recipe SelectorRecipe, resolve func(string) string) (CandidatePaper, error) {
	c := &itemContext{selection: selection, recipe: recipe, resolve: resolve}

	updaters := []func(*itemContext) error{
		updateTitle,
		updateURL,
		updateAuthors,
		updateAbstract,
		updateDOI,
		updateDate,
		updateExternalID,
	}
	for _, updater := range updaters {
		if err := updater(c); err != nil {
			return CandidatePaper{}, err
		}
	}
	return c.paper, nil
}

func updateTitle(c *itemContext) error {
	title := cleanText(c.selection.Find(c.recipe.Title).First().Text())
	if title == "" {
		return errors.New("item has no title")
	}
	c.paper.Title = title
	return nil
}

func updateURL(c *itemContext) error {
	matched := c.selection.Find(c.recipe.URL).First()
	href := matched.AttrOr("href", "")
	if href == "" {
		href = matched.Find("a[href]").First().AttrOr("href", "")
	}
	// the item node itself may be the anchor
	if href == "" && goquery.NodeName(c.selection) == "a" {
		href = c.selection.AttrOr("href", "")
	}
	resolved := c.resolve(href)
	if resolved == "" {
		return errors.New("item has no url")
	}
	c.paper.URL = resolved
	return nil
}

func updateAuthors(c *itemContext) error {
	if c.recipe.Authors == "" {
		return nil
	}
	var values []string
	c.selection.Find(c.recipe.Authors).Each(func(_ int, s *goquery.Selection) {
		values = append(values, s.Text())
	})
	c.paper.Authors = splitAuthors(values)
	return nil
}

func updateAbstract(c *itemContext) error {
	if c.recipe.Abstract == "" {
		return nil
	}
	c.paper.Abstract = cleanText(c.selection.Find(c.recipe.Abstract).First().Text())
	return nil
}

func updateDOI(c *itemContext) error {
	if c.recipe.DOI == "" {
		return nil
	}
	matched := c.selection.Find(c.recipe.DOI).First()
	if doi := NormalizeDOI(matched.Text()); doi != "" {
		c.paper.DOI = doi
		return nil
	}
	if doi := NormalizeDOI(matched.AttrOr("href", "")); doi != "" {
		c.paper.DOI = doi
		return nil
	}
	c.paper.DOI = FindDOI(matched.Text(), matched.AttrOr("href", ""))
	return nil
}

func updateDate(c *itemContext) error {
	if c.recipe.Date == "" {
		return nil
	}
	matched := c.selection.Find(c.recipe.Date).First()
	// a datetime attribute beats loosely formatted display text
	if parsed := parseDate(matched.AttrOr("datetime", "")); parsed != nil {
		c.paper.PublishedDate = parsed
		return nil
	}
	c.paper.PublishedDate = parseDate(matched.Text())
	return nil
}

func updateExternalID(c *itemContext) error {
	if c.recipe.ExternalID != "" {
		if id := cleanText(c.selection.Find(c.recipe.ExternalID).First().Text()); id != "" {
			c.paper.ExternalID = id
			return nil
		}
	}
	c.paper.ExternalID = utils.TextToMd5Hash(c.paper.URL)
	return nil
}
