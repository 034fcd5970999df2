package collector

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	doiRe         = regexp.MustCompile(`10\.\d{4,9}/[^\s"'<>]+`)
	authorSplitRe = regexp.MustCompile(`;|\band\b|&`)
)

// cleanText collapses runs of whitespace into single spaces and trims the
// result. Extracted fields always pass through here.
func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// stripTags renders an HTML fragment down to its visible text.
func stripTags(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return cleanText(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return cleanText(fragment)
	}
	doc.Find("script,style").Remove()
	return cleanText(doc.Text())
}

// parseDate parses a human-ish date string, returning nil when the string is
// empty or unparseable. The source's claimed date is never invented.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil
	}
	return &t
}

// splitAuthors normalizes author text nodes into one name per entry. A node
// already holding several authors is split on ";" and " and ", commas are
// left alone because "Doe, Jane" is a single name.
func splitAuthors(values []string) []string {
	var authors []string
	for _, value := range values {
		value = strings.TrimPrefix(cleanText(value), "by ")
		value = strings.TrimPrefix(value, "By ")
		for _, part := range authorSplitRe.Split(value, -1) {
			part = cleanText(part)
			if part != "" {
				authors = append(authors, part)
			}
		}
	}
	return authors
}

// NormalizeDOI strips doi: prefixes and resolver URLs, lowercases and
// validates the remainder. Returns empty when s does not carry a DOI.
func NormalizeDOI(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{
		"https://doi.org/", "http://doi.org/",
		"https://dx.doi.org/", "http://dx.doi.org/",
	} {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			s = s[len(prefix):]
			break
		}
	}
	lower := strings.ToLower(s)
	lower = strings.TrimPrefix(lower, "doi:")
	lower = strings.TrimSpace(lower)
	lower = strings.TrimRight(lower, ".,;)")
	if !doiRe.MatchString(lower) || !strings.HasPrefix(lower, "10.") {
		return ""
	}
	return lower
}

// FindDOI scans the given texts for the first embedded DOI.
func FindDOI(texts ...string) string {
	for _, text := range texts {
		if match := doiRe.FindString(text); match != "" {
			if doi := NormalizeDOI(match); doi != "" {
				return doi
			}
		}
	}
	return ""
}

// resolveURL makes href absolute against base. Unparseable hrefs resolve to
// empty rather than to garbage.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
