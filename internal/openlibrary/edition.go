package openlibrary

import (
	"context"
	"strings"
)

// FirstValidEdition scans editions in order and returns the ISBN and publish
// date of the first edition that has both. ISBN-13 is preferred over ISBN-10
// within an edition. found is false when no edition qualifies.
func FirstValidEdition(editions []Edition) (isbn, publishDate string, found bool) {
	for _, ed := range editions {
		date := strings.TrimSpace(ed.PublishDate)
		if date == "" {
			continue
		}
		if id := firstNonEmpty(ed.ISBN13); id != "" {
			return id, date, true
		}
		if id := firstNonEmpty(ed.ISBN10); id != "" {
			return id, date, true
		}
	}
	return "", "", false
}

// FindValidEdition fetches the editions of workID and applies
// FirstValidEdition.
func (c *Client) FindValidEdition(ctx context.Context, workID string) (isbn, publishDate string, found bool, err error) {
	editions, err := c.Editions(ctx, workID)
	if err != nil {
		return "", "", false, err
	}
	isbn, publishDate, found = FirstValidEdition(editions)
	return isbn, publishDate, found, nil
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
