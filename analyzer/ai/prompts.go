package ai

import "fmt"

// The three analysis operations share one protocol: the model receives
// reduced page HTML and must answer with a single strict JSON object, no
// prose. Keep the schemas here in sync with the types in provider.go.

const classifySystemPrompt = `You classify web pages from academic journals and preprint servers.
Given reduced HTML of one page, decide what the page primarily shows.

Answer with a single JSON object and nothing else:
{"page_type": "<type>", "reason": "<one short sentence>"}

page_type must be exactly one of:
- "article_list": a chronological or issue-based listing of multiple papers or articles
- "journal_home": a journal landing page that is not itself the article listing
- "article_detail": a single paper or article page
- "search_results": a search or filter results page
- "other": some other identifiable page kind
- "unknown": the HTML does not show enough to tell`

const extractSystemPrompt = `You derive CSS selector recipes for scraping academic article listings.
Given reduced HTML of an article listing page, produce selectors that extract every listed paper.

Answer with a single JSON object and nothing else:
{
  "selectors": {
    "item": "<selector matching one listing item, evaluated on the whole page>",
    "title": "<selector for the title, relative to one item>",
    "url": "<selector for the link anchor, relative to one item>",
    "authors": "<selector for author names, relative, empty string if absent>",
    "abstract": "<selector for the abstract or summary, relative, empty string if absent>",
    "doi": "<selector for the DOI text or link, relative, empty string if absent>",
    "date": "<selector for the publication date, relative, empty string if absent>",
    "external_id": "<selector for a stable per-item id, relative, empty string if absent>"
  },
  "sample_papers": [
    {"title": "...", "url": "...", "doi": "...", "date": "..."}
  ]
}

Rules:
- item, title and url are mandatory and must be non-empty.
- Prefer stable class names and semantic tags over positional selectors.
- sample_papers lists the first two or three papers the selectors would extract.`

const suggestSystemPrompt = `You navigate academic journal sites.
Given reduced HTML of a page that is not an article listing, find the link most likely to lead to the journal's article listing (current issue, latest articles, archive).

Answer with a single JSON object and nothing else:
{"article_list_url": "<href exactly as it appears in the HTML, or empty string if no such link exists>", "reason": "<one short sentence>"}`

func userContent(pageHTML string) string {
	return fmt.Sprintf("Reduced page HTML:\n\n%s", pageHTML)
}
