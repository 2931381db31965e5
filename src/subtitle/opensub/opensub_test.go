package opensub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestSearchQuery(t *testing.T) {
	cases := map[string]string{
		"file:///films/Some%20Film%20(2004).mkv": "Some Film (2004)",
		"/films/short.mp4":                       "short",
		"http://example.com/a/b/clip.webm?x=1":   "clip",
	}
	for in, want := range cases {
		if got := searchQuery(in); got != want {
			t.Errorf("searchQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchDownloadsCandidates(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/subs/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1\n00:00:01,000 --> 00:00:02,000\nhello\n"))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("query"); q != "movie" {
			t.Errorf("Unexpected query: %q", q)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []searchResult{
				{FileName: "movie.en.srt", URL: server.URL + "/subs/1", Language: "en", Score: 0.8},
				{FileName: "movie.nl.srt", URL: server.URL + "/subs/2", Language: "nl", Score: 0.4},
			},
		})
	})

	fetcher := &Fetcher{BaseURL: server.URL, DownloadDir: t.TempDir()}
	candidates, err := fetcher.Search(context.Background(), "/films/movie.mkv")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Unexpected number of candidates: %d", len(candidates))
	}
	if candidates[0].Score != 0.8 || candidates[0].Lang != "en" {
		t.Fatalf("Unexpected first candidate: %#v", candidates[0])
	}
	for _, c := range candidates {
		if _, err := os.Stat(c.Path); err != nil {
			t.Errorf("Candidate was not downloaded: %v", err)
		}
	}
}

func TestSearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := &Fetcher{BaseURL: server.URL}
	if _, err := fetcher.Search(context.Background(), "/films/movie.mkv"); err == nil {
		t.Fatal("Expected an error")
	}
}
