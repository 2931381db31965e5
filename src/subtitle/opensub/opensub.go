// Package opensub fetches subtitles from an OpenSubtitles style REST
// endpoint.
package opensub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"vidbox/src/subtitle"
)

// Candidates beyond this count are not downloaded, the engine only
// auto-selects one anyway.
const maxDownloads = 3

type Fetcher struct {
	// BaseURL is the root of the subtitle search API.
	BaseURL string
	// Language restricts search results, e.g. "en". Empty searches all
	// languages.
	Language string
	// DownloadDir receives the downloaded files. Defaults to the system
	// temp directory.
	DownloadDir string

	// Client is the HTTP client used for all requests. Defaults to
	// http.DefaultClient.
	Client *http.Client
}

var _ subtitle.Fetcher = &Fetcher{}

type searchResult struct {
	FileName string  `json:"file_name"`
	URL      string  `json:"url"`
	Language string  `json:"language"`
	Score    float64 `json:"score"`
}

// Search queries the API for subtitles matching the media's filename and
// downloads the best ranking candidates.
func (f *Fetcher) Search(ctx context.Context, mediaURL string) ([]subtitle.Candidate, error) {
	query := searchQuery(mediaURL)
	if query == "" {
		return nil, fmt.Errorf("could not derive a search query from %q", mediaURL)
	}

	reqURL := fmt.Sprintf("%s/search?query=%s", strings.TrimSuffix(f.BaseURL, "/"), url.QueryEscape(query))
	if f.Language != "" {
		reqURL += "&language=" + url.QueryEscape(f.Language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not search subtitles: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not search subtitles: %s", res.Status)
	}

	var data struct {
		Results []searchResult `json:"results"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode subtitle search response: %v", err)
	}

	var candidates []subtitle.Candidate
	for _, result := range data.Results {
		if len(candidates) >= maxDownloads {
			break
		}
		filename, err := f.download(ctx, result)
		if err != nil {
			log.Warnf("Could not download subtitle %q: %v", result.FileName, err)
			continue
		}
		candidates = append(candidates, subtitle.Candidate{
			Path:  filename,
			Name:  result.FileName,
			Lang:  result.Language,
			Score: result.Score,
		})
	}
	return candidates, nil
}

func (f *Fetcher) download(ctx context.Context, result searchResult) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.URL, nil)
	if err != nil {
		return "", err
	}
	res, err := f.client().Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", res.Status)
	}

	dir := f.DownloadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	fd, err := os.CreateTemp(dir, "*-"+sanitizeFilename(result.FileName))
	if err != nil {
		return "", err
	}
	defer fd.Close()
	if _, err := io.Copy(fd, res.Body); err != nil {
		os.Remove(fd.Name())
		return "", err
	}
	return fd.Name(), nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// searchQuery derives the title to search for from a path or URL: the
// filename without its extension.
func searchQuery(mediaURL string) string {
	name := mediaURL
	if u, err := url.Parse(mediaURL); err == nil && u.Scheme != "" {
		name = u.Path
	}
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "subtitle.srt"
	}
	return name
}
