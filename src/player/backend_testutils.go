package player

import (
	"fmt"
	"image"
	"sync"
	"time"
)

// fakeBackend records every command it receives and lets tests inject
// lifecycle events, allowing deterministic tests of the engine's state
// machine without a real media stack.
type fakeBackend struct {
	events chan BackendEvent

	lock     sync.Mutex
	commands []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{events: make(chan BackendEvent, 16)}
}

func (b *fakeBackend) record(format string, args ...interface{}) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.commands = append(b.commands, fmt.Sprintf(format, args...))
}

// Commands returns a copy of all commands received so far.
func (b *fakeBackend) Commands() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	commands := make([]string, len(b.commands))
	copy(commands, b.commands)
	return commands
}

// Loads returns the URLs of all load commands received so far.
func (b *fakeBackend) Loads() []string {
	var loads []string
	for _, cmd := range b.Commands() {
		if len(cmd) > 5 && cmd[:5] == "load " {
			loads = append(loads, cmd[5:])
		}
	}
	return loads
}

func (b *fakeBackend) Load(url string) error { b.record("load %s", url); return nil }
func (b *fakeBackend) Play() error           { b.record("play"); return nil }
func (b *fakeBackend) Pause() error          { b.record("pause"); return nil }
func (b *fakeBackend) Stop() error           { b.record("stop"); return nil }

func (b *fakeBackend) Seek(pos time.Duration) error { b.record("seek %v", pos); return nil }

func (b *fakeBackend) SetVolume(vol int) error          { b.record("volume %d", vol); return nil }
func (b *fakeBackend) SetMute(mute bool) error          { b.record("mute %v", mute); return nil }
func (b *fakeBackend) SetPlaySpeed(speed float64) error { b.record("speed %v", speed); return nil }
func (b *fakeBackend) SetRotation(degree int) error     { b.record("rotate %d", degree); return nil }
func (b *fakeBackend) SetAspect(ratio float64) error    { b.record("aspect %v", ratio); return nil }

func (b *fakeBackend) SetSoundMode(mode SoundMode) error { b.record("soundmode %s", mode); return nil }

func (b *fakeBackend) SelectAudioTrack(id int) error    { b.record("aid %d", id); return nil }
func (b *fakeBackend) SelectSubtitleTrack(id int) error { b.record("sid %d", id); return nil }
func (b *fakeBackend) SetSubtitleVisible(v bool) error  { b.record("subvisible %v", v); return nil }
func (b *fakeBackend) SetSubtitleDelay(s float64) error { b.record("subdelay %v", s); return nil }
func (b *fakeBackend) SetSubtitleCodepage(cp string) error {
	b.record("subcodepage %s", cp)
	return nil
}
func (b *fakeBackend) SetSubtitleStyle(font string, size int) error {
	b.record("substyle %s %d", font, size)
	return nil
}
func (b *fakeBackend) AddSubtitleFile(path string) error { b.record("subadd %s", path); return nil }
func (b *fakeBackend) AddSubtitleSearchPath(path string) error {
	b.record("subpath %s", path)
	return nil
}

func (b *fakeBackend) CaptureFrame() (image.Image, error) {
	b.record("capture")
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (b *fakeBackend) Events() <-chan BackendEvent { return b.events }

func (b *fakeBackend) Close() error {
	close(b.events)
	return nil
}

// testTrackLists is a plausible track snapshot for a loaded movie.
func testTrackLists() TrackLists {
	return TrackLists{
		Subs: []TrackInfo{
			{ID: 1, Lang: "en", Selected: true},
			{ID: 2, Lang: "nl"},
		},
		Audios: []TrackInfo{
			{ID: 1, Lang: "en", Default: true, Selected: true},
			{ID: 2, Lang: "ja"},
		},
	}
}
