package player

import (
	"image"
	"time"
)

// Notifications emitted by the Engine for consumption by the presentation
// layer. Every event corresponds to a completed change of engine owned
// state.

// StateEvent is emitted when the playback phase changes.
type StateEvent struct {
	State CoreState
}

// TimeEvent is emitted when the elapsed playback time changes.
type TimeEvent struct {
	Elapsed time.Duration
}

// VideoSizeEvent is emitted when the dimensions of the rendered video
// change.
type VideoSizeEvent struct {
	Width  int
	Height int
}

// TracksEvent is emitted when the snapshot of selectable tracks is replaced.
type TracksEvent struct {
	Info PlayingMovieInfo
}

// FileLoadedEvent is emitted when a new item has finished loading.
type FileLoadedEvent struct {
	URL string
}

// VolumeEvent is emitted when the volume changes.
type VolumeEvent struct {
	Volume int
}

// MuteEvent is emitted when the mute flag changes.
type MuteEvent struct {
	Muted bool
}

// AudioTrackEvent is emitted when the selected audio track changes. ID
// indexes PlayingMovieInfo.Audios, -1 means no selection.
type AudioTrackEvent struct {
	ID int
}

// SubtitleTrackEvent is emitted when the selected subtitle changes. ID
// indexes PlayingMovieInfo.Subs, -1 means no selection.
type SubtitleTrackEvent struct {
	ID int
}

// SubtitleCodepageEvent is emitted when the subtitle codepage changes.
type SubtitleCodepageEvent struct {
	Codepage string
}

// OnlineSubtitlesEvent is emitted exactly once per LoadOnlineSubtitle
// request, reporting its outcome.
type OnlineSubtitlesEvent struct {
	URL     string
	Success bool
	Reason  string
}

// ScreenshotEvent carries one captured frame during burst screenshotting.
type ScreenshotEvent struct {
	Frame image.Image
}

// PlaybackErrorEvent is emitted when the backend reports a fatal error for
// the current item. The engine does not retry.
type PlaybackErrorEvent struct {
	URL    string
	Reason string
}

// PlaylistEvent is emitted when the contents or current index of the
// playlist change.
type PlaylistEvent struct{}

// PlaylistAppendedEvent is emitted when an asynchronous bulk append has
// completed and all its items are visible for navigation.
type PlaylistAppendedEvent struct {
	Items []PlayItem
}
