package collector

import "errors"

// Failure categories surfaced verbatim as prefixes in FetchLog.ErrorMessage
// and API error payloads. Wrap with fmt.Errorf("%w: detail", ...) so that
// errors.Is keeps working while the rendered message stays category-first.
var (
	// ErrSourceUnreadable covers network failures, non-2xx responses,
	// unparseable payloads and exhausted redirect budgets.
	ErrSourceUnreadable = errors.New("SourceUnreadable")

	// ErrExtractionEmpty means the selector recipe ran but matched nothing,
	// usually because the source page changed layout.
	ErrExtractionEmpty = errors.New("ExtractionEmpty")

	// ErrUnconfigured means an ai_generated journal has no usable selector
	// recipe yet.
	ErrUnconfigured = errors.New("Unconfigured")
)
