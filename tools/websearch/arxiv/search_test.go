package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>  Raft Consensus Explained  </title>
    <summary>An understandable
    consensus algorithm.</summary>
    <link href="http://arxiv.org/abs/1234" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/1234" rel="related" type="application/pdf" title="pdf"/>
  </entry>
</feed>`

func TestSearchParsesAtomFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search_query"); got != "all:raft" {
			t.Errorf("unexpected search_query: %q", got)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)
	client := &http.Client{Transport: rewriteTransport{target: u}}

	results, err := Search{Client: client}.Search(context.Background(), "raft", 3)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Title != "Raft Consensus Explained" {
		t.Fatalf("unexpected title: %q", results[0].Title)
	}
	if results[0].URL != "http://arxiv.org/pdf/1234" {
		t.Fatalf("expected pdf link preferred, got %q", results[0].URL)
	}
	if results[0].Snippet != "An understandable consensus algorithm." {
		t.Fatalf("expected whitespace-normalized snippet, got %q", results[0].Snippet)
	}
	if results[0].Source != "arxiv" {
		t.Fatalf("unexpected source: %q", results[0].Source)
	}
}

func TestPickLinkFallsBackToAlternate(t *testing.T) {
	links := []link{
		{Href: "http://arxiv.org/abs/1", Rel: "alternate"},
		{Href: "http://arxiv.org/other/1", Rel: "related"},
	}
	if got := pickLink(links); got != "http://arxiv.org/abs/1" {
		t.Fatalf("pickLink = %q", got)
	}
	if got := pickLink(nil); got != "" {
		t.Fatalf("pickLink(nil) = %q", got)
	}
}
