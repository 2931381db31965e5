package player

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"vidbox/src/subtitle"
	"vidbox/src/util"
)

func newTestEngine(t *testing.T) (*Engine, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	e := NewEngine(backend, nil, nil)
	t.Cleanup(func() { e.Close() })
	return e, backend
}

// feed applies a backend event on the engine's control loop and waits for it
// to be processed.
func feed(e *Engine, event BackendEvent) {
	e.do(func() { e.handleBackendEvent(event) })
}

// startPlaying brings the engine into the Playing state with the specified
// URL loaded.
func startPlaying(t *testing.T, e *Engine, url string) {
	t.Helper()
	if !e.AddPlayFile(url) {
		t.Fatalf("%q was not accepted", url)
	}
	feed(e, OpenedEvent{URL: url, Duration: time.Hour, Tracks: testTrackLists(), Width: 1280, Height: 720})
	if e.State() != Playing {
		t.Fatalf("Engine did not start playing, state is %v", e.State())
	}
}

func TestPlayEmptyPlaylist(t *testing.T) {
	e, backend := newTestEngine(t)
	e.Play()
	if e.State() != Idle {
		t.Fatalf("Play on an empty playlist should be a no-op, state is %v", e.State())
	}
	if loads := backend.Loads(); len(loads) != 0 {
		t.Fatalf("Unexpected loads: %v", loads)
	}
}

func TestPlayStartsPlayback(t *testing.T) {
	e, backend := newTestEngine(t)
	util.TestEventEmission(t, e, StateEvent{State: Playing}, func() {
		startPlaying(t, e, "/films/a.mp4")
	})
	if loads := backend.Loads(); !reflect.DeepEqual(loads, []string{"/films/a.mp4"}) {
		t.Fatalf("Unexpected loads: %v", loads)
	}

	info := e.PlayingMovieInfo()
	if len(info.Subs) != 2 || len(info.Audios) != 2 {
		t.Fatalf("Track snapshot was not populated: %#v", info)
	}
	if e.Sid() != 0 || e.Aid() != 0 {
		t.Fatalf("Selections should default to the backend's, sid=%d aid=%d", e.Sid(), e.Aid())
	}
	if e.Duration() != time.Hour {
		t.Fatalf("Unexpected duration: %v", e.Duration())
	}
	if w, h := e.VideoSize(); w != 1280 || h != 720 {
		t.Fatalf("Unexpected video size: %dx%d", w, h)
	}
}

func TestPauseResume(t *testing.T) {
	e, _ := newTestEngine(t)

	// A no-op while Idle, there is nothing to pause.
	e.PauseResume()
	if e.State() != Idle {
		t.Fatalf("PauseResume while Idle should be a no-op, state is %v", e.State())
	}

	startPlaying(t, e, "/films/a.mp4")
	e.PauseResume()
	if e.State() != Paused {
		t.Fatalf("Expected Paused, got %v", e.State())
	}
	e.PauseResume()
	if e.State() != Playing {
		t.Fatalf("Expected Playing, got %v", e.State())
	}
}

func TestStopAlwaysYieldsIdle(t *testing.T) {
	e, _ := newTestEngine(t)

	e.Stop() // Stop while Idle is a no-op.
	if e.State() != Idle {
		t.Fatal("Stop while Idle should leave the engine Idle")
	}

	startPlaying(t, e, "/films/a.mp4")
	e.Stop()
	if e.State() != Idle {
		t.Fatalf("Expected Idle, got %v", e.State())
	}
	if info := e.PlayingMovieInfo(); len(info.Subs) != 0 || len(info.Audios) != 0 {
		t.Fatalf("Track snapshot should be cleared: %#v", info)
	}
	if e.Sid() != -1 || e.Aid() != -1 {
		t.Fatalf("Selections should be reset, sid=%d aid=%d", e.Sid(), e.Aid())
	}
	feed(e, EndEvent{Reason: EndReasonStop}) // The backend confirms the unload.

	startPlaying(t, e, "/films/a.mp4")
	e.PauseResume()
	e.Stop()
	if e.State() != Idle {
		t.Fatalf("Stop from Paused should yield Idle, got %v", e.State())
	}
}

func TestStopWhileAwaitingEndConfirmation(t *testing.T) {
	e, backend := newTestEngine(t)
	e.do(func() { e.WaitEndTimeout = time.Millisecond * 50 })
	e.AddPlayFiles([]string{"/films/a.mp4", "/films/b.mkv"})

	e.PlaySelected(0)
	e.Stop() // Begins waiting for the end confirmation.
	e.Stop() // Nothing pending anymore, the armed timeout must be dropped.

	// Without the cancel the timeout would fire here and clear the wait.
	time.Sleep(time.Millisecond * 100)
	e.PlaySelected(1)
	if loads := backend.Loads(); len(loads) != 1 {
		t.Fatalf("The load must wait for the end confirmation: %v", loads)
	}

	feed(e, EndEvent{Reason: EndReasonStop})
	want := []string{"/films/a.mp4", "/films/b.mkv"}
	if loads := backend.Loads(); !reflect.DeepEqual(loads, want) {
		t.Fatalf("Unexpected load sequence: %v", loads)
	}
}

func TestNextWrapsAround(t *testing.T) {
	e, backend := newTestEngine(t)
	e.AddPlayFiles([]string{"/films/a.mp4", "/films/b.mkv", "/films/c.avi"})

	e.Next() // Loads index 0 directly, nothing is playing yet.
	for i := 0; i < 3; i++ {
		e.Next()
		feed(e, EndEvent{Reason: EndReasonStop})
	}

	want := []string{"/films/a.mp4", "/films/b.mkv", "/films/c.avi", "/films/a.mp4"}
	if loads := backend.Loads(); !reflect.DeepEqual(loads, want) {
		t.Fatalf("Unexpected load sequence: %v", loads)
	}
}

func TestPrevWrapsAround(t *testing.T) {
	e, backend := newTestEngine(t)
	e.AddPlayFiles([]string{"/films/a.mp4", "/films/b.mkv"})

	e.Prev() // Current is -1, wraps to the last item.
	if loads := backend.Loads(); !reflect.DeepEqual(loads, []string{"/films/b.mkv"}) {
		t.Fatalf("Unexpected loads: %v", loads)
	}
}

func TestNextEmptyPlaylist(t *testing.T) {
	e, backend := newTestEngine(t)
	e.Next()
	e.Prev()
	if loads := backend.Loads(); len(loads) != 0 {
		t.Fatalf("Unexpected loads: %v", loads)
	}
}

func TestPlayIntentSupersedes(t *testing.T) {
	e, backend := newTestEngine(t)
	e.AddPlayFiles([]string{"/films/a.mp4", "/films/b.mkv", "/films/c.avi"})

	e.PlaySelected(0) // Loads immediately.
	e.PlaySelected(1) // Stops the backend, defers the load.
	e.PlaySelected(2) // Supersedes the intent for index 1.

	// The open confirmation for the superseded load must not become
	// current.
	feed(e, OpenedEvent{URL: "/films/a.mp4", Duration: time.Hour, Tracks: testTrackLists()})
	if e.State() != Idle {
		t.Fatalf("A superseded load must be discarded, state is %v", e.State())
	}

	feed(e, EndEvent{Reason: EndReasonStop})

	want := []string{"/films/a.mp4", "/films/c.avi"}
	if loads := backend.Loads(); !reflect.DeepEqual(loads, want) {
		t.Fatalf("Exactly one deferred load was expected: %v", loads)
	}
}

func TestPlaySelectedInvalidIndex(t *testing.T) {
	e, backend := newTestEngine(t)
	e.AddPlayFiles([]string{"/films/a.mp4"})
	e.PlaySelected(7)
	e.PlaySelected(-1)
	if loads := backend.Loads(); len(loads) != 0 {
		t.Fatalf("Unexpected loads: %v", loads)
	}
}

func TestWaitEndTimeoutForcesProceed(t *testing.T) {
	e, backend := newTestEngine(t)
	e.do(func() { e.WaitEndTimeout = time.Millisecond * 50 })
	e.AddPlayFiles([]string{"/films/a.mp4", "/films/b.mkv"})

	e.PlaySelected(0)
	e.PlaySelected(1)
	// The end confirmation never arrives, the engine must not deadlock.

	deadline := time.Now().Add(time.Second)
	for {
		loads := backend.Loads()
		if len(loads) == 2 && loads[1] == "/films/b.mkv" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Deferred load was never forced: %v", loads)
		}
		time.Sleep(time.Millisecond * 10)
	}
}

func TestEndOfFileAdvances(t *testing.T) {
	e, backend := newTestEngine(t)
	e.AddPlayFiles([]string{"/films/a.mp4", "/films/b.mkv"})
	e.PlaySelected(0)
	feed(e, OpenedEvent{URL: "/films/a.mp4", Duration: time.Hour, Tracks: testTrackLists()})

	feed(e, EndEvent{Reason: EndReasonEOF})
	want := []string{"/films/a.mp4", "/films/b.mkv"}
	if loads := backend.Loads(); !reflect.DeepEqual(loads, want) {
		t.Fatalf("Expected an advance to the next item: %v", loads)
	}

	// The last item ends, the engine settles in Idle.
	feed(e, OpenedEvent{URL: "/films/b.mkv", Duration: time.Hour, Tracks: testTrackLists()})
	feed(e, EndEvent{Reason: EndReasonEOF})
	if e.State() != Idle {
		t.Fatalf("Expected Idle after the last item, got %v", e.State())
	}
	if loads := backend.Loads(); len(loads) != 2 {
		t.Fatalf("No further load expected: %v", loads)
	}
}

func TestBackendErrorYieldsIdle(t *testing.T) {
	e, backend := newTestEngine(t)
	e.AddPlayFiles([]string{"/films/a.mp4", "/films/b.mkv"})
	e.PlaySelected(0)
	feed(e, OpenedEvent{URL: "/films/a.mp4", Duration: time.Hour, Tracks: testTrackLists()})

	util.TestEventEmission(t, e, PlaybackErrorEvent{URL: "/films/a.mp4", Reason: "decode failed"}, func() {
		feed(e, BackendErrorEvent{Reason: "decode failed"})
	})
	if e.State() != Idle {
		t.Fatalf("Expected Idle after a backend error, got %v", e.State())
	}
	// No retry and no automatic playlist advance.
	if loads := backend.Loads(); len(loads) != 1 {
		t.Fatalf("Unexpected loads after error: %v", loads)
	}
}

func TestSeekClamped(t *testing.T) {
	e, backend := newTestEngine(t)

	e.SeekAbsolute(time.Minute) // No-op while Idle.
	if cmds := backend.Commands(); len(cmds) != 0 {
		t.Fatalf("Seek while Idle should be a no-op: %v", cmds)
	}

	startPlaying(t, e, "/films/a.mp4")
	e.SeekAbsolute(time.Hour * 10)
	if e.Elapsed() != time.Hour {
		t.Fatalf("Seek should clamp to the duration, elapsed is %v", e.Elapsed())
	}
	e.SeekBackward(60 * 60 * 20)
	if e.Elapsed() != 0 {
		t.Fatalf("Seek should clamp to zero, elapsed is %v", e.Elapsed())
	}
}

func TestVolumeClamped(t *testing.T) {
	e, _ := newTestEngine(t)
	e.ChangeVolume(150)
	if vol := e.Volume(); vol > MaxVolume {
		t.Fatalf("Volume should be clamped: %d", vol)
	}
	e.ChangeVolume(-20)
	if vol := e.Volume(); vol != 0 {
		t.Fatalf("Volume should be clamped to zero: %d", vol)
	}
	e.ChangeVolume(95)
	e.VolumeUp()
	if vol := e.Volume(); vol != MaxVolume {
		t.Fatalf("VolumeUp should saturate at %d: %d", MaxVolume, vol)
	}
}

func TestMutePreservesVolume(t *testing.T) {
	e, _ := newTestEngine(t)
	e.ChangeVolume(70)

	util.TestEventEmission(t, e, MuteEvent{Muted: true}, e.ToggleMute)
	if !e.Muted() {
		t.Fatal("Expected the engine to be muted")
	}
	if vol := e.Volume(); vol != 70 {
		t.Fatalf("Muting should preserve the volume: %d", vol)
	}
	util.TestEventEmission(t, e, MuteEvent{Muted: false}, e.ToggleMute)
	if vol := e.Volume(); vol != 70 {
		t.Fatalf("Unmuting should restore the volume exactly: %d", vol)
	}
}

func TestSelectSubtitleUnknownID(t *testing.T) {
	e, _ := newTestEngine(t)
	startPlaying(t, e, "/films/a.mp4")
	sid := e.Sid()

	util.TestNoEventEmission(t, e, SubtitleTrackEvent{}, func() {
		e.SelectSubtitle(42)
	})
	if e.Sid() != sid {
		t.Fatalf("An unknown id should leave the selection unchanged: %d", e.Sid())
	}
}

func TestSelectTrack(t *testing.T) {
	e, backend := newTestEngine(t)
	startPlaying(t, e, "/films/a.mp4")

	util.TestEventEmission(t, e, AudioTrackEvent{ID: 1}, func() {
		e.SelectTrack(1)
	})
	if e.Aid() != 1 {
		t.Fatalf("Unexpected aid: %d", e.Aid())
	}
	// The backend receives its own track id, not the snapshot index.
	found := false
	for _, cmd := range backend.Commands() {
		if cmd == "aid 2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Backend did not receive the track id: %v", backend.Commands())
	}
}

func TestSubDelayRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	for _, secs := range []float64{-2, 0, 1.5, 10} {
		e.SetSubDelay(secs)
		if got := e.SubDelay(); got != secs {
			t.Fatalf("SubDelay round-trip failed: %v != %v", got, secs)
		}
	}
}

func TestSubCodepageEvent(t *testing.T) {
	e, _ := newTestEngine(t)
	util.TestEventEmission(t, e, SubtitleCodepageEvent{Codepage: "cp1251"}, func() {
		e.SetSubCodepage("cp1251")
	})
	if cp := e.SubCodepage(); cp != "cp1251" {
		t.Fatalf("Unexpected codepage: %q", cp)
	}
}

func TestToggleSubtitleKeepsSelection(t *testing.T) {
	e, _ := newTestEngine(t)
	startPlaying(t, e, "/films/a.mp4")
	sid := e.Sid()
	e.ToggleSubtitle()
	if e.SubVisible() {
		t.Fatal("Expected subtitles to be hidden")
	}
	if e.Sid() != sid {
		t.Fatalf("Toggling visibility should not change the selection: %d", e.Sid())
	}
}

func TestAddSubSearchPath(t *testing.T) {
	e, backend := newTestEngine(t)
	e.AddSubSearchPath("/films/subs")
	found := false
	for _, cmd := range backend.Commands() {
		if cmd == "subpath /films/subs" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Backend did not receive the search path: %v", backend.Commands())
	}
}

func TestAddPlayFiles(t *testing.T) {
	e, _ := newTestEngine(t)
	accepted := e.AddPlayFiles([]string{"/films/a.mp4", "/notes/b.txt", "/films/c.mkv"})
	if want := []string{"/films/a.mp4", "/films/c.mkv"}; !reflect.DeepEqual(accepted, want) {
		t.Fatalf("Unexpected accepted set: %v", accepted)
	}
	if count := e.Playlist().Count(); count != 2 {
		t.Fatalf("Unexpected playlist count: %d", count)
	}
}

func TestAddPlayFileRejected(t *testing.T) {
	e, backend := newTestEngine(t)
	if e.AddPlayFile("/notes/b.txt") {
		t.Fatal("A text file should not be accepted")
	}
	if loads := backend.Loads(); len(loads) != 0 {
		t.Fatalf("Unexpected loads: %v", loads)
	}
}

type fetcherFunc func(ctx context.Context, mediaURL string) ([]subtitle.Candidate, error)

func (f fetcherFunc) Search(ctx context.Context, mediaURL string) ([]subtitle.Candidate, error) {
	return f(ctx, mediaURL)
}

func TestOnlineSubtitleFailure(t *testing.T) {
	backend := newFakeBackend()
	e := NewEngine(backend, fetcherFunc(func(ctx context.Context, mediaURL string) ([]subtitle.Candidate, error) {
		return nil, errors.New("provider unreachable")
	}), nil)
	defer e.Close()

	want := OnlineSubtitlesEvent{URL: "/films/a.mp4", Success: false, Reason: "provider unreachable"}
	util.TestEventEmission(t, e, want, func() {
		e.LoadOnlineSubtitle("/films/a.mp4")
	})
}

func TestOnlineSubtitleNoResults(t *testing.T) {
	backend := newFakeBackend()
	e := NewEngine(backend, fetcherFunc(func(ctx context.Context, mediaURL string) ([]subtitle.Candidate, error) {
		return nil, nil
	}), nil)
	defer e.Close()

	want := OnlineSubtitlesEvent{URL: "/films/a.mp4", Success: false, Reason: "no subtitles found"}
	util.TestEventEmission(t, e, want, func() {
		e.LoadOnlineSubtitle("/films/a.mp4")
	})
}

func TestOnlineSubtitleNoFetcher(t *testing.T) {
	e, _ := newTestEngine(t)
	l := e.Events().Listen()
	defer e.Events().Unlisten(l)

	e.LoadOnlineSubtitle("/films/a.mp4")

	received := 0
	timeout := time.After(time.Millisecond * 500)
	for {
		select {
		case event := <-l:
			if fin, ok := event.(OnlineSubtitlesEvent); ok {
				if fin.Success {
					t.Fatal("The request cannot have succeeded")
				}
				received++
			}
		case <-timeout:
			if received != 1 {
				t.Fatalf("Expected exactly one outcome notification, got %d", received)
			}
			return
		}
	}
}

func TestBurstScreenshot(t *testing.T) {
	e, _ := newTestEngine(t)

	e.BurstScreenshot() // No-op while Idle.
	startPlaying(t, e, "/films/a.mp4")

	l := e.Events().Listen()
	defer e.Events().Unlisten(l)
	e.BurstScreenshot()

	timeout := time.After(time.Second * 2)
	for {
		select {
		case event := <-l:
			if _, ok := event.(ScreenshotEvent); ok {
				e.StopBurstScreenshot()
				return
			}
		case <-timeout:
			t.Fatal("No frame was delivered")
		}
	}
}

func TestLoadSubtitleUnsupported(t *testing.T) {
	e, _ := newTestEngine(t)
	startPlaying(t, e, "/films/a.mp4")
	if err := e.LoadSubtitle("/films/a.exe"); err == nil {
		t.Fatal("An unsupported extension should be rejected")
	}
	if err := e.LoadSubtitle("/does/not/exist.srt"); err == nil {
		t.Fatal("An unreadable file should be rejected")
	}
}

func TestPlayByNameAppendsUnknown(t *testing.T) {
	e, backend := newTestEngine(t)
	e.PlayByName("/films/zz.mkv")
	if count := e.Playlist().Count(); count != 1 {
		t.Fatalf("Unexpected playlist count: %d", count)
	}
	if loads := backend.Loads(); !reflect.DeepEqual(loads, []string{"/films/zz.mkv"}) {
		t.Fatalf("Unexpected loads: %v", loads)
	}
}

func TestVideoRotationValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetVideoRotation(90)
	if deg := e.VideoRotation(); deg != 90 {
		t.Fatalf("Unexpected rotation: %d", deg)
	}
	e.SetVideoRotation(45)
	if deg := e.VideoRotation(); deg != 90 {
		t.Fatalf("Rotation must be a multiple of 90: %d", deg)
	}
	e.SetVideoRotation(-90)
	if deg := e.VideoRotation(); deg != 270 {
		t.Fatalf("Negative rotations should normalize: %d", deg)
	}
}

func TestSoundMode(t *testing.T) {
	e, backend := newTestEngine(t)
	if mode := e.SoundMode(); mode != SoundModeStereo {
		t.Fatalf("Unexpected default sound mode: %q", mode)
	}
	e.SetSoundMode(SoundModeLeft)
	if mode := e.SoundMode(); mode != SoundModeLeft {
		t.Fatalf("Unexpected sound mode: %q", mode)
	}
	e.SetSoundMode("surround")
	if mode := e.SoundMode(); mode != SoundModeLeft {
		t.Fatalf("An unknown mode should be a no-op: %q", mode)
	}
	found := false
	for _, cmd := range backend.Commands() {
		if cmd == "soundmode left" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Backend did not receive the sound mode: %v", backend.Commands())
	}
}

func TestTrackListReplacementResetsSelection(t *testing.T) {
	e, _ := newTestEngine(t)
	startPlaying(t, e, "/films/a.mp4")
	e.SelectSubtitle(1)
	if e.Sid() != 1 {
		t.Fatalf("Unexpected sid: %d", e.Sid())
	}

	// An external subtitle was added, the backend selects it.
	tracks := testTrackLists()
	tracks.Subs[0].Selected = false
	tracks.Subs = append(tracks.Subs, TrackInfo{ID: 3, External: true, Path: "/films/a.srt", Selected: true})
	tracks.Subs[1].Selected = false
	feed(e, TrackListEvent{Tracks: tracks})

	if e.Sid() != 2 {
		t.Fatalf("Selection should reset to the backend's, sid=%d", e.Sid())
	}
	if len(e.PlayingMovieInfo().Subs) != 3 {
		t.Fatalf("Track snapshot was not replaced: %#v", e.PlayingMovieInfo())
	}
}

func ExampleEngine() {
	backend := newFakeBackend()
	e := NewEngine(backend, nil, nil)
	defer e.Close()

	accepted := e.AddPlayFiles([]string{"intro.mkv", "readme.txt", "feature.mp4"})
	fmt.Println(accepted)
	// Output: [intro.mkv feature.mp4]
}
