package gcontacts

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"

	"github.com/google/go-querystring/query"
	"go.uber.org/zap"
)

// Default feed parameters.
const (
	DefaultType       = "contacts"
	DefaultAlt        = "json"
	DefaultProjection = "thin"
	DefaultEmail      = "default"
	DefaultMaxResults = 2000
)

// Contact is a single directory entry reduced to its display name and its
// first email address.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FeedParams selects the feed to request. Zero fields fall back to the
// Default* constants. Type, Email and Projection become path segments
// verbatim, without escaping.
type FeedParams struct {
	// Type is the feed type, e.g. "contacts" or "groups".
	Type string
	// Email identifies the user whose feed is requested; "default" is the
	// authenticated user.
	Email string
	// Projection is the feed projection, e.g. "thin" or "full".
	Projection string
	// Alt is the response format.
	Alt string
	// MaxResults is the page size asked for. The API may cap it lower.
	MaxResults int
	// Path, when set, is requested verbatim and every other field is
	// ignored. Continuation links are followed this way.
	Path string
}

// feedQuery is the query part of a feed request. The other parameters are
// path segments.
type feedQuery struct {
	Alt        string `url:"alt"`
	MaxResults int    `url:"max-results"`
}

// withDefaults returns p with every zero field set to its default.
func (p FeedParams) withDefaults() FeedParams {
	if p.Type == "" {
		p.Type = DefaultType
	}
	if p.Alt == "" {
		p.Alt = DefaultAlt
	}
	if p.Projection == "" {
		p.Projection = DefaultProjection
	}
	if p.Email == "" {
		p.Email = DefaultEmail
	}
	if p.MaxResults == 0 {
		p.MaxResults = DefaultMaxResults
	}
	return p
}

// buildPath returns the request path for p. Values are neither validated
// nor escaped, the API reports unknown types or projections itself.
func buildPath(p FeedParams) (string, error) {
	if p.Path != "" {
		return p.Path, nil
	}

	p = p.withDefaults()

	v, err := query.Values(feedQuery{Alt: p.Alt, MaxResults: p.MaxResults})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("/m8/feeds/%s/%s/%s?%s",
		p.Type,
		p.Email,
		p.Projection,
		v.Encode(),
	), nil
}

// Feed retrieves and normalizes a single page of the feed.
func (c *Client) Feed(ctx context.Context, params FeedParams) (*Feed, error) {
	path, err := buildPath(params)
	if err != nil {
		return nil, err
	}

	u, err := resolve(c.baseURL, path)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	var resp feedResponse
	if err := c.doJSON(req, &resp); err != nil {
		return nil, err
	}
	if resp.Feed == nil {
		return nil, fmt.Errorf("response has no feed: %w", ErrDecode)
	}

	contacts, skipped := normalizeEntries(resp.Feed.Entries)

	feed := &Feed{
		Links:    resp.Feed.Links,
		Contacts: contacts,
		Skipped:  skipped,
	}
	for _, e := range decodeMeta(feed, resp.Feed) {
		c.logger.Debug("ignoring undecodable feed metadata",
			zap.String("path", path),
			zap.String("field", e.field),
			zap.Error(e.err),
		)
	}

	c.logger.Debug("fetched feed page",
		zap.String("path", path),
		zap.Int("entries", len(resp.Feed.Entries)),
		zap.Int("contacts", len(contacts)),
		zap.Int("skipped", skipped),
	)

	return feed, nil
}

// ContactsIter returns an iterator over all contacts, following "next"
// links page by page. Only the first "next" link of a page is followed.
// On failure the error is yielded once and iteration stops.
func (c *Client) ContactsIter(ctx context.Context, params FeedParams) iter.Seq2[Contact, error] {
	return iterate(ctx, func(ctx context.Context, path string) ([]Contact, string, error) {
		p := params
		if path != "" {
			p = FeedParams{Path: path}
		}

		feed, err := c.Feed(ctx, p)
		if err != nil {
			return nil, "", err
		}

		next, n, err := feed.Next()
		if err != nil {
			return nil, "", err
		}
		if n > 1 {
			c.logger.Warn("page has several next links, following the first",
				zap.Int("next_links", n),
				zap.String("next", next),
			)
		}

		return feed.Contacts, next, nil
	})
}

// Contacts retrieves the complete directory. Either every contact is
// returned, in page order, or the first error encountered.
func (c *Client) Contacts(ctx context.Context, params FeedParams) ([]Contact, error) {
	var contacts []Contact
	for contact, err := range c.ContactsIter(ctx, params) {
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}

	return contacts, nil
}

// rawEntry holds the parts of a feed entry a Contact is built from.
// Pointers distinguish absent fields from empty ones.
type rawEntry struct {
	Title *struct {
		T *string `json:"$t"`
	} `json:"title"`
	Email []struct {
		Address *string `json:"address"`
	} `json:"gd$email"`
}

// decodeEntry builds a Contact from a raw entry. It reports false if the
// entry has no title or email, or does not have the expected shape.
func decodeEntry(data json.RawMessage) (Contact, bool) {
	var e rawEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return Contact{}, false
	}

	if e.Title == nil || e.Title.T == nil {
		return Contact{}, false
	}
	// only the first address counts
	if len(e.Email) == 0 || e.Email[0].Address == nil {
		return Contact{}, false
	}

	return Contact{Name: *e.Title.T, Email: *e.Email[0].Address}, true
}

// normalizeEntries converts the entries of a page, keeping their order.
func normalizeEntries(entries []json.RawMessage) ([]Contact, int) {
	contacts := make([]Contact, 0, len(entries))
	skipped := 0

	for _, entry := range entries {
		contact, ok := decodeEntry(entry)
		if !ok {
			skipped++
			continue
		}
		contacts = append(contacts, contact)
	}

	return contacts, skipped
}
