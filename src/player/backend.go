package player

import (
	"errors"
	"image"
	"time"
)

var (
	// ErrNoMedia is returned by backend commands that require loaded media
	// while nothing is loaded.
	ErrNoMedia = errors.New("no media loaded")
	// ErrUnsupported is returned by backends for capabilities they do not
	// implement, such as subtitles on an audio-only backend.
	ErrUnsupported = errors.New("operation not supported by backend")
	// ErrUnplayable is returned when a file is rejected by the classifier.
	ErrUnplayable = errors.New("file is not playable")
)

// SoundMode selects which channels of the audio stream are rendered.
type SoundMode string

const (
	SoundModeStereo SoundMode = "stereo"
	SoundModeLeft   SoundMode = "left"
	SoundModeRight  SoundMode = "right"
)

// TrackInfo describes a single selectable audio or subtitle stream of the
// loaded media.
type TrackInfo struct {
	// ID is the backend's identifier for this track.
	ID int `json:"id"`
	// Lang is the language code as reported by the backend, may be empty.
	Lang string `json:"lang,omitempty"`
	// Title is a human readable description, may be empty.
	Title string `json:"title,omitempty"`
	// External is set for tracks loaded from a sidecar file, in which case
	// Path holds its location.
	External bool   `json:"external,omitempty"`
	Path     string `json:"path,omitempty"`
	// Selected reports whether the backend currently renders this track.
	Selected bool `json:"selected,omitempty"`
	// Default is the backend's preferred track of its kind.
	Default bool `json:"default,omitempty"`
}

// TrackLists is the set of selectable streams reported by the backend for
// the loaded media.
type TrackLists struct {
	Subs   []TrackInfo `json:"subs"`
	Audios []TrackInfo `json:"audios"`
}

// PlayingMovieInfo is the engine owned snapshot of the currently loaded
// item's track descriptors. It is replaced wholesale on every load, never
// mutated in place.
type PlayingMovieInfo struct {
	Subs   []TrackInfo `json:"subs"`
	Audios []TrackInfo `json:"audios"`
}

// A Backend drives one native media instance. The engine is the only
// component that issues commands to it.
//
// Commands are fire-and-forget, effects are reported through the event
// channel. Commands that require loaded media return ErrNoMedia while
// nothing is loaded.
type Backend interface {
	// Load opens the specified URL and begins decoding. Completion is
	// reported with an OpenedEvent.
	Load(url string) error
	Play() error
	Pause() error
	Stop() error
	Seek(pos time.Duration) error

	SetVolume(vol int) error
	SetMute(mute bool) error
	SetPlaySpeed(speed float64) error
	SetRotation(degree int) error
	SetAspect(ratio float64) error
	SetSoundMode(mode SoundMode) error

	SelectAudioTrack(id int) error
	SelectSubtitleTrack(id int) error
	SetSubtitleVisible(visible bool) error
	SetSubtitleDelay(secs float64) error
	SetSubtitleCodepage(cp string) error
	SetSubtitleStyle(font string, size int) error
	AddSubtitleFile(path string) error
	AddSubtitleSearchPath(path string) error

	// CaptureFrame grabs the currently rendered video frame.
	CaptureFrame() (image.Image, error)

	// Events exposes the backend's lifecycle events. Events are delivered
	// exactly once per occurrence, in the order the backend produced them.
	// The channel is closed when the backend shuts down.
	Events() <-chan BackendEvent

	Close() error
}

// BackendEvent is a discrete lifecycle event produced by a Backend.
type BackendEvent interface{}

// EndReason discriminates why playback of the loaded media ended.
type EndReason string

const (
	EndReasonEOF   EndReason = "eof"
	EndReasonStop  EndReason = "stop"
	EndReasonError EndReason = "error"
)

// OpenedEvent is emitted when a load completes and decoding has begun.
type OpenedEvent struct {
	URL      string
	Duration time.Duration
	Tracks   TrackLists
	Width    int
	Height   int
}

// EndEvent is emitted when the backend has released the loaded media, either
// because it played to completion, was stopped, or failed.
type EndEvent struct {
	Reason EndReason
}

// BackendErrorEvent is emitted when a native-level failure occurs. It is
// fatal for the current media only.
type BackendErrorEvent struct {
	Reason string
}

// TrackListEvent is emitted when the set of selectable tracks changes, for
// example after a sidecar subtitle was added.
type TrackListEvent struct {
	Tracks TrackLists
}

// ProgressEvent reports the advancing playback position.
type ProgressEvent struct {
	Elapsed time.Duration
}

// DurationEvent reports a refined total duration of the loaded media.
type DurationEvent struct {
	Duration time.Duration
}

// SizeEvent reports the video dimensions of the loaded media.
type SizeEvent struct {
	Width  int
	Height int
}
