package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"veritas-scraper/internal/domain/entity"
	"veritas-scraper/internal/infra/fetcher"
	"veritas-scraper/internal/resilience/retry"
)

var testAccept = []string{"/gundem/", "/haber/", "/spor/"}
var testReject = []string{"/galeri/", "/video/"}

// listingServer serves pages of links; pageLinks maps page number to hrefs.
func listingServer(t *testing.T, pageLinks map[int][]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		html := "<html><body>"
		for _, href := range pageLinks[page] {
			html += fmt.Sprintf(`<a href="%s">link</a>`, href)
		}
		html += "</body></html>"
		_, _ = w.Write([]byte(html))
	}))
}

func newTestSource(serverURL string) *entity.Source {
	return &entity.Source{Slug: "test", BaseURL: serverURL + "/"}
}

func TestPageLister_AcceptRejectFiltering(t *testing.T) {
	server := listingServer(t, map[int][]string{
		1: {
			"/gundem/kabul-edilen-haber",
			"/galeri/reddedilen",
			"/hakkimizda",
			"https://elsewhere.example.org/gundem/baska-site",
			"/video/reddedilen-video",
			"/spor/mac-sonucu",
		},
	})
	defer server.Close()

	client := fetcher.NewWithClient(server.Client())
	lister := NewPageLister(client, testAccept, testReject, 1, 6)

	urls, err := lister.List(context.Background(), newTestSource(server.URL), 300)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{
		server.URL + "/gundem/kabul-edilen-haber",
		server.URL + "/spor/mac-sonucu",
	}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestPageLister_StagnationStopsEarly(t *testing.T) {
	var pagesServed []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pagesServed = append(pagesServed, page)
		// Only page 1 has a fresh link; every later page repeats it.
		_, _ = w.Write([]byte(`<a href="/gundem/tek-haber">x</a>`))
	}))
	defer server.Close()

	client := fetcher.NewWithClient(server.Client())
	lister := NewPageLister(client, testAccept, testReject, 10, 3)

	urls, err := lister.List(context.Background(), newTestSource(server.URL), 300)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(urls) != 1 {
		t.Errorf("urls = %v, want the single fresh link", urls)
	}
	// Page 1 adds one URL, pages 2-4 are stagnant, then we stop: 4 requests.
	if len(pagesServed) != 4 {
		t.Errorf("pages fetched = %v, want 4 fetches before stagnation stop", pagesServed)
	}
}

func TestPageLister_BoundCapsCollection(t *testing.T) {
	links := make([]string, 20)
	for i := range links {
		links[i] = fmt.Sprintf("/gundem/haber-%d", i)
	}
	server := listingServer(t, map[int][]string{1: links})
	defer server.Close()

	client := fetcher.NewWithClient(server.Client())
	lister := NewPageLister(client, testAccept, testReject, 1, 6)

	urls, err := lister.List(context.Background(), newTestSource(server.URL), 5)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(urls) != 5 {
		t.Errorf("got %d urls, want bound of 5", len(urls))
	}
}

func TestPageLister_ExplicitListingPages(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(fmt.Sprintf(`<a href="/haber%s/konu">x</a>`, r.URL.Path)))
	}))
	defer server.Close()

	client := fetcher.NewWithClient(server.Client())
	lister := NewPageLister(client, []string{"/haber/"}, testReject, 10, 6)

	src := &entity.Source{
		Slug:    "kategorili",
		BaseURL: server.URL + "/",
		ListingPages: []string{
			server.URL + "/kategori/1",
			server.URL + "/kategori/2",
		},
	}

	_, err := lister.List(context.Background(), src, 300)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(paths) != 2 || paths[0] != "/kategori/1" || paths[1] != "/kategori/2" {
		t.Errorf("fetched paths = %v, want the explicit listing pages", paths)
	}
}

func TestPageLister_RetriesTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "geçici hata", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`<a href="/gundem/toparlandi">x</a>`))
	}))
	defer server.Close()

	client := fetcher.NewWithClient(server.Client())
	lister := NewPageLister(client, testAccept, testReject, 1, 6)
	lister.retryConfig = retry.Config{MaxAttempts: 2, Multiplier: 2.0}

	urls, err := lister.List(context.Background(), newTestSource(server.URL), 300)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(urls) != 1 || urls[0] != server.URL+"/gundem/toparlandi" {
		t.Errorf("urls = %v, want the link from the retried page", urls)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("page fetched %d times, want 2 (one failure, one retry)", got)
	}
}

func TestPageLister_FetchErrorStopsButReturnsCollected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page > 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`<a href="/gundem/ilk-sayfa">x</a>`))
	}))
	defer server.Close()

	client := fetcher.NewWithClient(server.Client())
	lister := NewPageLister(client, testAccept, testReject, 5, 6)
	// One attempt keeps the failing page from sitting through real backoff.
	lister.retryConfig = retry.Config{MaxAttempts: 1}

	urls, err := lister.List(context.Background(), newTestSource(server.URL), 300)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(urls) != 1 {
		t.Errorf("urls = %v, want page 1 results preserved", urls)
	}
}
