package openlibrary

import (
	"encoding/json"
	"strings"
)

// Author is a search hit for an author.
type Author struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	TopWork   string `json:"top_work"`
	WorkCount int    `json:"work_count"`
}

// WorkSummary is one entry of an author's work list.
type WorkSummary struct {
	Key   string `json:"key"` // "/works/OL45804W"
	Title string `json:"title"`
}

// ID returns the bare work identifier, e.g. "OL45804W".
func (w WorkSummary) ID() string { return WorkID(w.Key) }

// Work is the detail document of a single work.
type Work struct {
	Key              string    `json:"key"`
	Title            string    `json:"title"`
	Description      TextValue `json:"description"`
	Subjects         []string  `json:"subjects"`
	FirstPublishDate string    `json:"first_publish_date"`

	// Raw is the verbatim response body.
	Raw json.RawMessage `json:"-"`
}

// Edition is one published edition of a work.
type Edition struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	ISBN13      []string `json:"isbn_13"`
	ISBN10      []string `json:"isbn_10"`
	PublishDate string   `json:"publish_date"`
}

// TextValue decodes fields that the API sends either as a plain string or
// as a typed object {"type": "/type/text", "value": "..."}.
type TextValue string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TextValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TextValue(s)
		return nil
	}

	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	*t = TextValue(typed.Value)
	return nil
}

// WorkID strips the "/works/" prefix from a work key.
func WorkID(key string) string {
	return strings.TrimPrefix(key, "/works/")
}

// AuthorID strips the "/authors/" prefix from an author key.
func AuthorID(key string) string {
	return strings.TrimPrefix(key, "/authors/")
}

type searchAuthorsResponse struct {
	NumFound int      `json:"numFound"`
	Docs     []Author `json:"docs"`
}

type worksPage struct {
	Size    int           `json:"size"`
	Entries []WorkSummary `json:"entries"`
}

type editionsPage struct {
	Size    int       `json:"size"`
	Entries []Edition `json:"entries"`
}
