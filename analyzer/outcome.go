package analyzer

import (
	"github.com/papermux/papermux/analyzer/ai"
	"github.com/papermux/papermux/collector"
)

// Outcome is the terminal verdict on one analyzed page. Exactly one of
// Listing, Redirect or Unsupported; callers type switch over it.
type Outcome interface {
	outcome()
}

// Listing confirms an article listing page and carries the selector recipe
// derived from it. FinalURL is the page the recipe was validated against,
// after any redirects.
type Listing struct {
	PageType string
	Recipe   collector.SelectorRecipe
	Samples  []ai.SamplePaper
	FinalURL string
	Provider string
	Model    string
}

// Redirect means the page is not a listing itself but links to one.
type Redirect struct {
	PageType string
	URL      string
	Reason   string
}

// Unsupported means the page is not a listing and no route to one was found.
type Unsupported struct {
	PageType string
	Reason   string
}

func (*Listing) outcome()     {}
func (*Redirect) outcome()    {}
func (*Unsupported) outcome() {}

// RedirectStep records one analyzer-driven hop: the page at From was
// classified as PageType and the provider pointed at To as the listing.
type RedirectStep struct {
	From     string `json:"from"`
	To       string `json:"to"`
	PageType string `json:"page_type"`
}
