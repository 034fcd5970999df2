package collector

import (
	"strings"

	"github.com/papermux/papermux/utils"
)

// PaperIndex answers "have we seen this paper before" for one journal.
// Identity checks run in fixed precedence: DOI, then normalized URL, then
// external id, first hit wins. Titles are never compared.
type PaperIndex struct {
	byDOI        map[string]bool
	byURL        map[string]bool
	byExternalID map[string]bool
}

func NewPaperIndex() *PaperIndex {
	return &PaperIndex{
		byDOI:        make(map[string]bool),
		byURL:        make(map[string]bool),
		byExternalID: make(map[string]bool),
	}
}

// AddKeys registers the identity keys of an already stored paper.
func (ix *PaperIndex) AddKeys(doi, rawURL, externalID string) {
	if key := doiKey(doi); key != "" {
		ix.byDOI[key] = true
	}
	if rawURL != "" {
		ix.byURL[utils.NormalizeURL(rawURL)] = true
	}
	if externalID != "" {
		ix.byExternalID[externalID] = true
	}
}

// Add registers a candidate that is about to be stored, so later candidates
// in the same batch deduplicate against it.
func (ix *PaperIndex) Add(paper CandidatePaper) {
	ix.AddKeys(paper.DOI, paper.URL, paper.ExternalID)
}

// IsDuplicate reports whether the candidate matches any known identity key.
func (ix *PaperIndex) IsDuplicate(paper CandidatePaper) bool {
	if key := doiKey(paper.DOI); key != "" && ix.byDOI[key] {
		return true
	}
	if paper.URL != "" && ix.byURL[utils.NormalizeURL(paper.URL)] {
		return true
	}
	if paper.ExternalID != "" && ix.byExternalID[paper.ExternalID] {
		return true
	}
	return false
}

// doiKey normalizes a DOI for comparison, falling back to a lowercased copy
// for values that predate normalization at ingest.
func doiKey(doi string) string {
	if doi == "" {
		return ""
	}
	if key := NormalizeDOI(doi); key != "" {
		return key
	}
	return strings.ToLower(strings.TrimSpace(doi))
}
