package player

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"vidbox/src/subtitle"
)

const onlineSearchTimeout = time.Second * 30

// SubVisible reports whether subtitles are rendered.
func (e *Engine) SubVisible() bool {
	var visible bool
	e.do(func() { visible = e.subVisible })
	return visible
}

// ToggleSubtitle flips subtitle visibility without changing the selection.
func (e *Engine) ToggleSubtitle() {
	e.do(func() {
		e.subVisible = !e.subVisible
		if err := e.backend.SetSubtitleVisible(e.subVisible); err != nil {
			log.Errorf("Could not set subtitle visibility: %v", err)
		}
	})
}

// SubDelay returns the subtitle delay in seconds.
func (e *Engine) SubDelay() float64 {
	var secs float64
	e.do(func() { secs = e.subDelay })
	return secs
}

func (e *Engine) SetSubDelay(secs float64) {
	e.do(func() {
		if err := e.backend.SetSubtitleDelay(secs); err != nil {
			log.Errorf("Could not set subtitle delay: %v", err)
		}
		e.subDelay = secs
	})
}

// SubCodepage returns the codepage subtitle files are decoded with.
func (e *Engine) SubCodepage() string {
	var cp string
	e.do(func() { cp = e.codepage })
	return cp
}

func (e *Engine) SetSubCodepage(cp string) {
	e.do(func() {
		if err := e.backend.SetSubtitleCodepage(cp); err != nil {
			log.Errorf("Could not set subtitle codepage: %v", err)
		}
		if cp != e.codepage {
			e.codepage = cp
			e.events.Emit(SubtitleCodepageEvent{Codepage: cp})
		}
	})
}

// AddSubSearchPath adds a directory the backend searches for sidecar
// subtitle files.
func (e *Engine) AddSubSearchPath(path string) {
	e.do(func() {
		if err := e.backend.AddSubtitleSearchPath(path); err != nil {
			log.Errorf("Could not add subtitle search path: %v", err)
		}
	})
}

// UpdateSubStyle changes the rendering font and size. Style changes apply
// immediately to the active render if one exists.
func (e *Engine) UpdateSubStyle(font string, size int) {
	e.do(func() {
		if err := e.backend.SetSubtitleStyle(font, size); err != nil {
			log.Errorf("Could not set subtitle style: %v", err)
		}
		e.subFont = font
		e.subSize = size
	})
}

// LoadSubtitle attaches a local subtitle file to the loaded media. It fails
// if the file is unreadable or has an unsupported extension.
func (e *Engine) LoadSubtitle(path string) error {
	var err error
	e.do(func() { err = e.loadSubtitleFile(path) })
	return err
}

func (e *Engine) loadSubtitleFile(path string) error {
	if !IsSubtitleFile(path) {
		return fmt.Errorf("%q: %w", path, ErrUnplayable)
	}
	if _, err := os.Stat(localPath(path)); err != nil {
		return fmt.Errorf("could not read subtitle file: %w", err)
	}
	if e.currentURL == "" {
		return ErrNoMedia
	}
	return e.backend.AddSubtitleFile(path)
}

// LoadOnlineSubtitle searches for subtitles matching the specified media URL
// using the configured fetcher. The search runs out-of-band, its outcome is
// reported exactly once as an OnlineSubtitlesEvent. The best ranking
// downloaded candidate is attached as the active subtitle.
func (e *Engine) LoadOnlineSubtitle(url string) {
	if e.fetcher == nil {
		e.events.Emit(OnlineSubtitlesEvent{URL: url, Success: false, Reason: "no subtitle provider configured"})
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), onlineSearchTimeout)
		defer cancel()
		candidates, err := e.fetcher.Search(ctx, url)
		e.post(func() { e.onSubtitlesDownloaded(url, candidates, err) })
	}()
}

func (e *Engine) onSubtitlesDownloaded(url string, candidates []subtitle.Candidate, err error) {
	if err != nil {
		log.Errorf("Online subtitle search for %q failed: %v", url, err)
		e.events.Emit(OnlineSubtitlesEvent{URL: url, Success: false, Reason: err.Error()})
		return
	}
	best, ok := subtitle.Best(candidates)
	if !ok {
		e.events.Emit(OnlineSubtitlesEvent{URL: url, Success: false, Reason: "no subtitles found"})
		return
	}
	if err := e.loadSubtitleFile(best.Path); err != nil {
		log.Errorf("Could not attach downloaded subtitle %q: %v", best.Path, err)
		e.events.Emit(OnlineSubtitlesEvent{URL: url, Success: false, Reason: err.Error()})
		return
	}
	e.events.Emit(OnlineSubtitlesEvent{URL: url, Success: true})
}
