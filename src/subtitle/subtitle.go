// Package subtitle defines the contract for acquiring subtitle files from
// online sources.
package subtitle

import "context"

// A Candidate is a subtitle file that was downloaded during a search.
type Candidate struct {
	// Path is the location of the downloaded file on the local filesystem.
	Path string
	// Name is the filename as reported by the provider.
	Name string
	// Lang is the subtitle's language code, may be empty.
	Lang string
	// Score is the provider's match ranking. Higher is better.
	Score float64
}

// A Fetcher searches an online source for subtitles matching a media URL and
// downloads the candidates it finds. Implementations perform network I/O and
// must honor the context.
type Fetcher interface {
	// Search returns the downloaded candidates, which may be empty. The
	// ranking of the candidates is the fetcher's own policy.
	Search(ctx context.Context, mediaURL string) ([]Candidate, error)
}

// Best picks the candidate that should be auto-selected as the active
// subtitle: the highest score, ties broken by first position.
func Best(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}
