package ai

import (
	"context"
	"errors"
	"sync"
)

// Fake is a scriptable Provider for tests. Unset operations fail loudly so a
// test never silently exercises the wrong path.
type Fake struct {
	ClassifyFn func(ctx context.Context, pageHTML string) (*Classification, error)
	ExtractFn  func(ctx context.Context, pageHTML string) (*SelectorExtraction, error)
	SuggestFn  func(ctx context.Context, pageHTML string) (*RedirectSuggestion, error)

	mu    sync.Mutex
	calls []string
}

var _ Provider = (*Fake)(nil)

func (f *Fake) Name() string  { return "fake" }
func (f *Fake) Model() string { return "fake-model" }

func (f *Fake) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

// Calls returns the operations invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) Classify(ctx context.Context, pageHTML string) (*Classification, error) {
	f.record("classify")
	if f.ClassifyFn == nil {
		return nil, errors.New("fake provider: Classify not scripted")
	}
	return f.ClassifyFn(ctx, pageHTML)
}

func (f *Fake) ExtractSelectors(ctx context.Context, pageHTML string) (*SelectorExtraction, error) {
	f.record("extract")
	if f.ExtractFn == nil {
		return nil, errors.New("fake provider: ExtractSelectors not scripted")
	}
	return f.ExtractFn(ctx, pageHTML)
}

func (f *Fake) SuggestRedirect(ctx context.Context, pageHTML string) (*RedirectSuggestion, error) {
	f.record("suggest")
	if f.SuggestFn == nil {
		return nil, errors.New("fake provider: SuggestRedirect not scripted")
	}
	return f.SuggestFn(ctx, pageHTML)
}
