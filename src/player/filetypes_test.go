package player

import (
	"testing"
)

func TestFileClassification(t *testing.T) {
	for _, c := range []struct {
		url                  string
		audio, video, subtit bool
	}{
		{"/music/song.flac", true, false, false},
		{"/music/song.mp3", true, false, false},
		{"/films/movie.mkv", false, true, false},
		{"/films/movie.mp4", false, true, false},
		{"/films/movie.webm", false, true, false},
		{"/films/movie.srt", false, false, true},
		{"/films/movie.ass", false, false, true},
		{"/films/movie.sub", false, false, true},
		{"file:///films/movie.avi", false, true, false},
		{"http://example.com/stream.m3u8?token=abc", false, true, false},
		{"/bin/app.exe", false, false, false},
		{"/films/noext", false, false, false},
		{"", false, false, false},
	} {
		if got := IsAudioFile(c.url); got != c.audio {
			t.Errorf("IsAudioFile(%q) = %v, want %v", c.url, got, c.audio)
		}
		if got := IsVideoFile(c.url); got != c.video {
			t.Errorf("IsVideoFile(%q) = %v, want %v", c.url, got, c.video)
		}
		if got := IsSubtitleFile(c.url); got != c.subtit {
			t.Errorf("IsSubtitleFile(%q) = %v, want %v", c.url, got, c.subtit)
		}
	}
}

func TestFileClassificationCaseInsensitive(t *testing.T) {
	for _, url := range []string{"/films/MOVIE.MKV", "/films/Movie.Mp4", "/films/movie.AVI"} {
		if !IsVideoFile(url) {
			t.Errorf("IsVideoFile(%q) = false, extension case should not matter", url)
		}
	}
	if !IsAudioFile("/music/SONG.FLAC") {
		t.Errorf("IsAudioFile should ignore extension case")
	}
	if !IsSubtitleFile("/films/movie.SRT") {
		t.Errorf("IsSubtitleFile should ignore extension case")
	}
}

func TestIsPlayableFile(t *testing.T) {
	if !IsPlayableFile("/films/movie.mkv") || !IsPlayableFile("/music/song.opus") {
		t.Fatalf("Media files should be playable")
	}
	// Ogg containers may hold either audio or video, both predicates accept
	// them.
	if !IsAudioFile("/media/thing.ogg") || !IsVideoFile("/media/thing.ogg") {
		t.Fatalf("The ogg extension belongs to both the audio and video sets")
	}
	if IsPlayableFile("/films/movie.srt") {
		t.Fatalf("A subtitle file is not playable on its own")
	}
	if IsPlayableFile("/bin/app.exe") {
		t.Fatalf("Unrecognized files are not playable")
	}
}
