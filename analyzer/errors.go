package analyzer

import (
	"errors"
	"fmt"

	"github.com/papermux/papermux/analyzer/ai"
)

// excerptLimit caps how much of an unparseable provider payload is carried
// in error messages and log lines.
const excerptLimit = 240

// Failure categories surfaced verbatim as prefixes in FetchLog.ErrorMessage
// and API error payloads, same convention as package collector.
var (
	// ErrAnalysisFailed covers provider call failures and payloads that do
	// not decode into the protocol schema.
	ErrAnalysisFailed = errors.New("AnalysisFailed")

	// ErrNotAListingPage means classification decided the page is not an
	// article listing, so no selector recipe can come out of it.
	ErrNotAListingPage = errors.New("NotAListingPage")
)

// AnalysisError reports one failed provider operation. Excerpt keeps the
// head of an unparseable payload for operator diagnosis.
type AnalysisError struct {
	Stage   string
	Excerpt string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Excerpt != "" {
		return fmt.Sprintf("%v: %s: %v (payload: %s)", ErrAnalysisFailed, e.Stage, e.Err, e.Excerpt)
	}
	return fmt.Sprintf("%v: %s: %v", ErrAnalysisFailed, e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

func (e *AnalysisError) Is(target error) bool { return target == ErrAnalysisFailed }

func newAnalysisError(stage string, err error) *AnalysisError {
	analysisErr := &AnalysisError{Stage: stage, Err: err}
	var payloadErr *ai.PayloadError
	if errors.As(err, &payloadErr) {
		analysisErr.Excerpt = payloadErr.Excerpt(excerptLimit)
	}
	return analysisErr
}

// NotListingError reports that analysis ended on a page that is not an
// article listing. Suggestion carries the listing URL the provider pointed
// at, when it found one.
type NotListingError struct {
	PageType   string
	Suggestion string
}

func (e *NotListingError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v: page classified as %s, suggested listing %s", ErrNotAListingPage, e.PageType, e.Suggestion)
	}
	return fmt.Sprintf("%v: page classified as %s", ErrNotAListingPage, e.PageType)
}

func (e *NotListingError) Is(target error) bool { return target == ErrNotAListingPage }
