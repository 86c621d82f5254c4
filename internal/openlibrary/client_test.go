package openlibrary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
)

// newTestServer serves a catalogue with one author who has total works,
// paged by the limit/offset query parameters.
func newTestServer(t *testing.T, total int) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/search/authors.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "nobody" {
			fmt.Fprint(w, `{"numFound":0,"docs":[]}`)
			return
		}
		fmt.Fprint(w, `{"numFound":2,"docs":[{"key":"OL1A","name":"George Orwell","work_count":3},{"key":"OL2A","name":"Other"}]}`)
	})
	r.Get("/authors/{key}/works.json", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "key") != "OL1A" {
			http.NotFound(w, r)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		entries := "["
		for i := offset; i < total && i < offset+limit; i++ {
			if i > offset {
				entries += ","
			}
			entries += fmt.Sprintf(`{"key":"/works/OL%dW","title":"Work %d"}`, i, i)
		}
		entries += "]"
		fmt.Fprintf(w, `{"size":%d,"entries":%s}`, total, entries)
	})
	r.Get("/works/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimSuffix(chi.URLParam(r, "id"), ".json") {
		case "OL0W":
			fmt.Fprint(w, `{"key":"/works/OL0W","title":"Animal Farm","description":{"type":"/type/text","value":"A fable."},"subjects":["Satire","Fables"]}`)
		case "OL1W":
			fmt.Fprint(w, `{"key":"/works/OL1W","title":"Nineteen Eighty-Four","description":"A novel."}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	r.Get("/works/{id}/editions.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"size":3,"entries":[
			{"key":"/books/OL1M","isbn_13":["9780451524935"]},
			{"key":"/books/OL2M","isbn_10":["0451524934"],"publish_date":"1950"},
			{"key":"/books/OL3M","isbn_13":["9780141036144"],"publish_date":"2008"}
		]}`)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, pageSize int) *Client {
	return New(Config{BaseURL: srv.URL, RateLimitDelay: -1, PageSize: pageSize})
}

// ============================================================================
// Search Tests
// ============================================================================

func TestClient_SearchAuthor(t *testing.T) {
	c := newTestClient(newTestServer(t, 0), 10)

	got, err := c.SearchAuthor(context.Background(), "George Orwell")
	if err != nil {
		t.Fatalf("SearchAuthor() error = %v", err)
	}
	want := Author{Key: "OL1A", Name: "George Orwell", WorkCount: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchAuthor() mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.SearchAuthor(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SearchAuthor(nobody) error = %v, want ErrNotFound", err)
	}
}

// ============================================================================
// Works Tests
// ============================================================================

func TestClient_Works_Pagination(t *testing.T) {
	c := newTestClient(newTestServer(t, 7), 3)

	var keys []string
	for w, err := range c.Works(context.Background(), "/authors/OL1A") {
		if err != nil {
			t.Fatalf("Works() error = %v", err)
		}
		keys = append(keys, w.ID())
	}

	want := []string{"OL0W", "OL1W", "OL2W", "OL3W", "OL4W", "OL5W", "OL6W"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("Works() mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_AuthorWorks_Limit(t *testing.T) {
	c := newTestClient(newTestServer(t, 7), 3)

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 2, want: 2},
		{limit: 5, want: 5},
		{limit: 20, want: 7},
		{limit: 0, want: 7},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.limit), func(t *testing.T) {
			works, err := c.AuthorWorks(context.Background(), "OL1A", tt.limit)
			if err != nil {
				t.Fatalf("AuthorWorks() error = %v", err)
			}
			if len(works) != tt.want {
				t.Errorf("len(works) = %d, want %d", len(works), tt.want)
			}
		})
	}
}

func TestClient_Works_NetworkError(t *testing.T) {
	c := newTestClient(newTestServer(t, 3), 3)

	_, err := c.AuthorWorks(context.Background(), "OL404A", 5)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want *NetworkError", err)
	}
	if netErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", netErr.StatusCode, http.StatusNotFound)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("errors.Is(err, ErrNetwork) = false, want true")
	}
}

// ============================================================================
// Work Tests
// ============================================================================

func TestClient_Work(t *testing.T) {
	c := newTestClient(newTestServer(t, 0), 10)

	tests := []struct {
		key      string
		title    string
		desc     TextValue
		subjects []string
	}{
		{key: "/works/OL0W", title: "Animal Farm", desc: "A fable.", subjects: []string{"Satire", "Fables"}},
		{key: "OL1W", title: "Nineteen Eighty-Four", desc: "A novel."},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			w, err := c.Work(context.Background(), tt.key)
			if err != nil {
				t.Fatalf("Work() error = %v", err)
			}
			if w.Title != tt.title {
				t.Errorf("Title = %q, want %q", w.Title, tt.title)
			}
			if w.Description != tt.desc {
				t.Errorf("Description = %q, want %q", w.Description, tt.desc)
			}
			if diff := cmp.Diff(tt.subjects, w.Subjects); diff != "" {
				t.Errorf("Subjects mismatch (-want +got):\n%s", diff)
			}
			if len(w.Raw) == 0 {
				t.Error("Raw payload is empty")
			}
		})
	}
}

func TestClient_Work_ServerError(t *testing.T) {
	c := newTestClient(newTestServer(t, 0), 10)

	w, err := c.Work(context.Background(), "OL9W")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("Work() error = %v, want ErrNetwork", err)
	}
	if w.Title != "" || w.Raw != nil {
		t.Errorf("Work() returned partial data %+v alongside error", w)
	}
}

// ============================================================================
// Edition Tests
// ============================================================================

func TestFirstValidEdition(t *testing.T) {
	tests := []struct {
		name      string
		editions  []Edition
		wantISBN  string
		wantDate  string
		wantFound bool
	}{
		{
			name: "first qualifying edition wins",
			editions: []Edition{
				{ISBN13: []string{"9780451524935"}},
				{ISBN10: []string{"0451524934"}, PublishDate: "1950"},
				{ISBN13: []string{"9780141036144"}, PublishDate: "2008"},
			},
			wantISBN: "0451524934", wantDate: "1950", wantFound: true,
		},
		{
			name: "isbn13 preferred within edition",
			editions: []Edition{
				{ISBN10: []string{"0451524934"}, ISBN13: []string{"9780451524935"}, PublishDate: "1961"},
			},
			wantISBN: "9780451524935", wantDate: "1961", wantFound: true,
		},
		{
			name: "no edition qualifies",
			editions: []Edition{
				{PublishDate: "1950"},
				{ISBN13: []string{"9780451524935"}, PublishDate: "  "},
			},
		},
		{name: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isbn, date, found := FirstValidEdition(tt.editions)
			if isbn != tt.wantISBN || date != tt.wantDate || found != tt.wantFound {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", isbn, date, found, tt.wantISBN, tt.wantDate, tt.wantFound)
			}
		})
	}
}

func TestClient_FindValidEdition(t *testing.T) {
	c := newTestClient(newTestServer(t, 0), 10)

	isbn, date, found, err := c.FindValidEdition(context.Background(), "/works/OL0W")
	if err != nil {
		t.Fatalf("FindValidEdition() error = %v", err)
	}
	if !found || isbn != "0451524934" || date != "1950" {
		t.Errorf("got (%q, %q, %v), want (%q, %q, true)", isbn, date, found, "0451524934", "1950")
	}
}

// ============================================================================
// Rate Limit Tests
// ============================================================================

func TestClient_RateLimit(t *testing.T) {
	srv := newTestServer(t, 0)
	c := New(Config{BaseURL: srv.URL, RateLimitDelay: 40 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.SearchAuthor(context.Background(), "George Orwell"); err != nil {
			t.Fatalf("SearchAuthor() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 calls took %v, want at least 80ms", elapsed)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	srv := newTestServer(t, 0)
	c := New(Config{BaseURL: srv.URL, RateLimitDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := c.SearchAuthor(ctx, "George Orwell"); err != nil {
		t.Fatalf("first SearchAuthor() error = %v", err)
	}
	cancel()

	_, err := c.SearchAuthor(ctx, "George Orwell")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("SearchAuthor() after cancel error = %v, want context.Canceled", err)
	}
}

func TestTextValue_Null(t *testing.T) {
	var tv TextValue = "stale"
	if err := tv.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatal(err)
	}
	if tv != "" {
		t.Errorf("got %q, want empty", tv)
	}
}
