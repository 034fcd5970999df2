package server

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/model"
)

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Generator     string    `xml:"generator"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description,omitempty"`
	Author      string  `xml:"author,omitempty"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink string `xml:"isPermaLink,attr"`
}

// RenderRSS renders live extracted candidates as an RSS 2.0 document for
// the journal's public feed.
func RenderRSS(journal *model.Journal, candidates []collector.CandidatePaper) ([]byte, error) {
	channel := rssChannel{
		Title:         journal.Name,
		Link:          journal.SourceURL,
		Description:   "Latest papers from " + journal.Name,
		Generator:     "papermux",
		LastBuildDate: time.Now().UTC().Format(time.RFC1123Z),
	}

	for _, candidate := range candidates {
		item := rssItem{
			Title:       candidate.Title,
			Link:        candidate.URL,
			Description: itemDescription(candidate),
			Author:      strings.Join(candidate.Authors, ", "),
			GUID:        rssGUID{Value: candidate.ExternalID, IsPermaLink: "false"},
		}
		if candidate.PublishedDate != nil {
			item.PubDate = candidate.PublishedDate.UTC().Format(time.RFC1123Z)
		}
		channel.Items = append(channel.Items, item)
	}

	body, err := xml.MarshalIndent(rssDoc{Version: "2.0", Channel: channel}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func itemDescription(candidate collector.CandidatePaper) string {
	description := candidate.Abstract
	if candidate.DOI != "" {
		if description != "" {
			description += "\n"
		}
		description += "doi:" + candidate.DOI
	}
	return description
}
