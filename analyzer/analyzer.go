// Package analyzer drives AI assisted page analysis: fetch and reduce a
// page, classify it, then either derive a selector recipe from it or locate
// the article listing it links to. It runs only on journal onboarding and
// explicit regenerate or test actions, never on scheduled fetches.
package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/papermux/papermux/analyzer/ai"
	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/utils"
	Logger "github.com/papermux/papermux/utils/log"
	"github.com/sirupsen/logrus"
)

// suggestFromTypes are the classifications worth asking for a redirect
// suggestion. Article detail and unknown pages are terminal.
var suggestFromTypes = []string{
	ai.PageTypeJournalHome,
	ai.PageTypeSearchResults,
	ai.PageTypeOther,
}

var knownPageTypes = []string{
	ai.PageTypeArticleList,
	ai.PageTypeJournalHome,
	ai.PageTypeArticleDetail,
	ai.PageTypeSearchResults,
	ai.PageTypeOther,
	ai.PageTypeUnknown,
}

type Analyzer struct {
	provider     ai.Provider
	fetcher      *collector.PageFetcher
	byteBudget   int
	maxRedirects int
}

func New(provider ai.Provider, fetcher *collector.PageFetcher, byteBudget, maxRedirects int) *Analyzer {
	return &Analyzer{
		provider:     provider,
		fetcher:      fetcher,
		byteBudget:   byteBudget,
		maxRedirects: maxRedirects,
	}
}

// Inspect analyzes exactly one page. It classifies the reduced HTML, then
// extracts a recipe from listing pages or asks for a redirect suggestion on
// the page types that may link to a listing.
func (a *Analyzer) Inspect(ctx context.Context, pageURL string) (Outcome, error) {
	page, reduced, err := a.fetcher.FetchAndReduce(ctx, pageURL, a.byteBudget)
	if err != nil {
		return nil, err
	}

	Logger.Log.WithFields(logrus.Fields{
		"url":           page.URL,
		"original_size": reduced.OriginalSize,
		"reduced_size":  reduced.ReducedSize,
		"truncated":     reduced.Truncated,
	}).Info("reduced page for analysis")

	classification, err := a.provider.Classify(ctx, reduced.HTML)
	if err != nil {
		return nil, newAnalysisError("classify", err)
	}
	pageType := normalizePageType(classification.PageType)

	if pageType == ai.PageTypeArticleList {
		return a.extractListing(ctx, page, reduced.HTML)
	}

	if !utils.ContainsString(suggestFromTypes, pageType) {
		return &Unsupported{PageType: pageType, Reason: classification.Reason}, nil
	}

	suggestion, err := a.provider.SuggestRedirect(ctx, reduced.HTML)
	if err != nil {
		return nil, newAnalysisError("suggest", err)
	}
	if suggestion.ArticleListURL == "" {
		return &Unsupported{PageType: pageType, Reason: classification.Reason}, nil
	}

	return &Redirect{
		PageType: pageType,
		URL:      resolveSuggestion(page.URL, suggestion.ArticleListURL),
		Reason:   suggestion.Reason,
	}, nil
}

// extractListing asks for a recipe and replays it against the full page; a
// recipe that cannot extract anything from the page it came from is a
// failed analysis, not a stored config.
func (a *Analyzer) extractListing(ctx context.Context, page *collector.FetchedPage, reducedHTML string) (Outcome, error) {
	extraction, err := a.provider.ExtractSelectors(ctx, reducedHTML)
	if err != nil {
		return nil, newAnalysisError("extract", err)
	}
	if !extraction.Selectors.Usable() {
		return nil, newAnalysisError("extract", fmt.Errorf("recipe misses a mandatory selector"))
	}

	papers, _, err := collector.ExtractFromHTML(page.HTML, extraction.Selectors, page.URL)
	if err != nil {
		return nil, newAnalysisError("extract", err)
	}
	if len(papers) == 0 {
		return nil, newAnalysisError("extract", fmt.Errorf("recipe matches nothing on %s", page.URL))
	}

	Logger.Log.Infof("derived recipe extracts %d papers from %s", len(papers), page.URL)

	return &Listing{
		PageType: ai.PageTypeArticleList,
		Recipe:   extraction.Selectors,
		Samples:  extraction.SamplePapers,
		FinalURL: page.URL,
		Provider: a.provider.Name(),
		Model:    a.provider.Model(),
	}, nil
}

// Analyze follows redirect suggestions until a terminal outcome, bounded by
// the redirect budget. When the budget runs out with another suggestion in
// hand, that pending Redirect is returned as the outcome.
func (a *Analyzer) Analyze(ctx context.Context, pageURL string) (Outcome, []RedirectStep, error) {
	var steps []RedirectStep
	current := pageURL

	for {
		outcome, err := a.Inspect(ctx, current)
		if err != nil {
			return nil, steps, err
		}
		redirect, ok := outcome.(*Redirect)
		if !ok {
			return outcome, steps, nil
		}
		if len(steps) >= a.maxRedirects || redirect.URL == current {
			return redirect, steps, nil
		}
		steps = append(steps, RedirectStep{From: current, To: redirect.URL, PageType: redirect.PageType})
		Logger.Log.Infof("following suggested listing %s -> %s", current, redirect.URL)
		current = redirect.URL
	}
}

// normalizePageType maps whatever the provider answered onto the known
// class names, treating anything unrecognized as other.
func normalizePageType(raw string) string {
	pageType := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
	if !utils.ContainsString(knownPageTypes, pageType) {
		return ai.PageTypeOther
	}
	return pageType
}

// resolveSuggestion absolutizes a suggested href against the page it was
// found on.
func resolveSuggestion(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
