package gcontacts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// relNext is the link relation pointing at the continuation of a feed.
const relNext = "next"

// feedResponse is the envelope every feed response is wrapped in.
type feedResponse struct {
	Feed *rawFeed `json:"feed"`
}

// rawFeed is one page of the feed as sent by the API. Entries stay raw so a
// single malformed entry cannot fail the whole page, and so does the
// metadata, which is informational only.
type rawFeed struct {
	Updated      json.RawMessage   `json:"updated"`
	TotalResults json.RawMessage   `json:"openSearch$totalResults"`
	StartIndex   json.RawMessage   `json:"openSearch$startIndex"`
	ItemsPerPage json.RawMessage   `json:"openSearch$itemsPerPage"`
	Links        []Link            `json:"link"`
	Entries      []json.RawMessage `json:"entry"`
}

// metaError records a metadata field that could not be decoded.
type metaError struct {
	field string
	err   error
}

// decodeMeta fills the metadata of f from raw. Fields that cannot be
// decoded stay zero and are reported back.
func decodeMeta(f *Feed, raw *rawFeed) []metaError {
	var errs []metaError

	if len(raw.Updated) > 0 {
		if err := json.Unmarshal(raw.Updated, &f.Updated); err != nil {
			f.Updated = Time{}
			errs = append(errs, metaError{field: "updated", err: err})
		}
	}

	counters := []struct {
		field string
		raw   json.RawMessage
		dst   *int
	}{
		{"openSearch$totalResults", raw.TotalResults, &f.TotalResults},
		{"openSearch$startIndex", raw.StartIndex, &f.StartIndex},
		{"openSearch$itemsPerPage", raw.ItemsPerPage, &f.ItemsPerPage},
	}
	for _, c := range counters {
		n, err := parseCount(c.raw)
		if err != nil {
			errs = append(errs, metaError{field: c.field, err: err})
			continue
		}
		*c.dst = n
	}

	return errs
}

// Link is a navigation link of a feed.
type Link struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href"`
}

// Feed is a single normalized page of the contacts feed.
type Feed struct {
	// Updated is the time the feed was last changed.
	Updated Time
	// TotalResults is the number of entries in the whole feed.
	TotalResults int
	// StartIndex is the 1-based index of the first entry of this page.
	StartIndex int
	// ItemsPerPage is the page size the API applied.
	ItemsPerPage int
	// Links are the navigation links of the page.
	Links []Link
	// Contacts are the entries of this page that carry a name and an email.
	Contacts []Contact
	// Skipped counts entries dropped because they lacked a name or an email.
	Skipped int
}

// Next returns the request URI of the first "next" link of the page and
// the number of "next" links present. An empty path means the page is the
// last one.
func (f *Feed) Next() (path string, n int, err error) {
	for _, l := range f.Links {
		if l.Rel != relNext {
			continue
		}

		n++
		if n > 1 {
			continue
		}

		u, err := url.Parse(l.Href)
		if err != nil {
			return "", n, fmt.Errorf("parse next link %q: %w, %w", l.Href, err, ErrDecode)
		}
		path = u.RequestURI()
	}

	return path, n, nil
}

// parseCount decodes an OpenSearch counter. The API wraps them as
// {"$t": "42"}; bare numbers and numeric strings are accepted as well.
// Absent, null and empty values are zero.
func parseCount(data json.RawMessage) (int, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return 0, nil
	}

	if data[0] == '{' {
		var v struct {
			T json.RawMessage `json:"$t"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return 0, err
		}
		return parseCount(v.T)
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, err
		}
		if s = strings.TrimSpace(s); s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	}

	return strconv.Atoi(string(data))
}
