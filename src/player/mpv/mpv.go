package mpv

import (
	"bufio"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"vidbox/src/player"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = time.Millisecond * 300

	// Track list changes arrive as a burst when a file opens, one
	// notification per stream. The change timer coalesces them into a
	// single TrackListEvent.
	trackListDebounce = time.Millisecond * 100
)

// Backend drives a dedicated mpv process over its JSON-IPC socket and
// implements player.Backend.
type Backend struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	ipc        *ipcConn
	eventConn  net.Conn
	events     chan player.BackendEvent

	mu         sync.Mutex
	closed     bool
	loaded     bool
	loadedURL  string
	pendingURL string
	width      int
	height     int
	tlTimer    *time.Timer
}

// NewBackend spawns an idle mpv process and connects to its IPC socket. The
// binary argument may be empty, in which case mpv is looked up in $PATH.
// Extra arguments are passed to mpv verbatim, after the built in ones.
func NewBackend(binary string, extraArgs ...string) (*Backend, error) {
	if binary == "" {
		binary = "mpv"
	}
	socketPath := filepath.Join(os.TempDir(), fmt.Sprintf("vidbox-mpv-%d.sock", os.Getpid()))

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--force-window=yes",
		"--keep-open=no",
		fmt.Sprintf("--input-ipc-server=%s", socketPath),
	}
	args = append(args, extraArgs...)

	b := &Backend{
		socketPath: socketPath,
		cmd:        exec.Command(binary, args...),
		exited:     make(chan struct{}),
		ipc:        newIPCConn(socketPath),
		events:     make(chan player.BackendEvent, 128),
	}
	if err := b.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mpv: %w", err)
	}
	go func() {
		b.cmd.Wait()
		close(b.exited)
	}()

	if err := b.waitForSocket(); err != nil {
		if b.cmd.Process != nil {
			b.cmd.Process.Kill()
		}
		return nil, fmt.Errorf("mpv socket not ready: %w", err)
	}
	if err := b.startEventListener(); err != nil {
		b.Close()
		return nil, err
	}
	log.Debugf("mpv started, ipc socket at %s", socketPath)
	return b, nil
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func (b *Backend) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)
		select {
		case <-b.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}
		conn, err := net.Dial("unix", b.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", b.socketPath, socketWaitRetries)
}

// startEventListener opens the persistent event connection, registers
// property observers on it and starts the read loop.
//
// observe_property registrations are scoped to the connection that issues
// them, so they must be sent on the event connection itself.
func (b *Backend) startEventListener() error {
	conn, err := net.Dial("unix", b.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}
	properties := []string{"time-pos", "duration", "dwidth", "dheight", "track-list"}
	for i, prop := range properties {
		payload, _ := json.Marshal(ipcCommand{
			Command:   []interface{}{"observe_property", i + 1, prop},
			RequestID: i + 1,
		})
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", prop, err)
		}
	}
	b.eventConn = conn
	go b.eventLoop()
	return nil
}

// eventLoop reads newline delimited JSON events from the persistent
// connection and translates them into BackendEvents. It terminates when the
// connection is closed and closes the event channel on the way out.
func (b *Backend) eventLoop() {
	defer func() {
		b.mu.Lock()
		b.closed = true
		if b.tlTimer != nil {
			b.tlTimer.Stop()
		}
		close(b.events)
		b.mu.Unlock()
	}()

	sc := bufio.NewScanner(b.eventConn)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var msg struct {
			Event  string          `json:"event"`
			Name   string          `json:"name"`
			Data   json.RawMessage `json:"data"`
			Reason string          `json:"reason"`
		}
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil || msg.Event == "" {
			continue
		}
		switch msg.Event {
		case "property-change":
			b.onPropertyChange(msg.Name, msg.Data)
		case "file-loaded":
			b.onFileLoaded()
		case "end-file":
			b.onEndFile(msg.Reason)
		}
	}
	if err := sc.Err(); err != nil {
		log.Debugf("mpv event connection closed: %v", err)
	}
}

func (b *Backend) onPropertyChange(name string, data json.RawMessage) {
	if len(data) == 0 || string(data) == "null" {
		return
	}
	switch name {
	case "time-pos":
		var secs float64
		if json.Unmarshal(data, &secs) == nil {
			b.emit(player.ProgressEvent{Elapsed: secsToDuration(secs)})
		}
	case "duration":
		var secs float64
		if json.Unmarshal(data, &secs) == nil {
			b.emit(player.DurationEvent{Duration: secsToDuration(secs)})
		}
	case "dwidth", "dheight":
		var px int
		if json.Unmarshal(data, &px) != nil {
			return
		}
		b.mu.Lock()
		if name == "dwidth" {
			b.width = px
		} else {
			b.height = px
		}
		w, h := b.width, b.height
		b.mu.Unlock()
		if w > 0 && h > 0 {
			b.emit(player.SizeEvent{Width: w, Height: h})
		}
	case "track-list":
		b.scheduleTrackListEvent()
	}
}

// scheduleTrackListEvent arms or rewinds the coalescing timer.
func (b *Backend) scheduleTrackListEvent() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || !b.loaded {
		return
	}
	if b.tlTimer != nil {
		b.tlTimer.Stop()
	}
	b.tlTimer = time.AfterFunc(trackListDebounce, func() {
		tracks, err := b.trackLists()
		if err != nil {
			log.Debugf("mpv track-list query: %v", err)
			return
		}
		b.emit(player.TrackListEvent{Tracks: tracks})
	})
}

func (b *Backend) onFileLoaded() {
	b.mu.Lock()
	b.loaded = true
	b.loadedURL = b.pendingURL
	url := b.loadedURL
	b.mu.Unlock()

	// The duration may not be known yet for some containers, a
	// DurationEvent follows once mpv has figured it out.
	var durSecs float64
	b.getProperty("duration", &durSecs)
	var w, h int
	b.getProperty("dwidth", &w)
	b.getProperty("dheight", &h)
	b.mu.Lock()
	b.width, b.height = w, h
	b.mu.Unlock()

	tracks, err := b.trackLists()
	if err != nil {
		log.Debugf("mpv track-list query: %v", err)
	}
	b.emit(player.OpenedEvent{
		URL:      url,
		Duration: secsToDuration(durSecs),
		Tracks:   tracks,
		Width:    w,
		Height:   h,
	})
}

func (b *Backend) onEndFile(reason string) {
	b.mu.Lock()
	b.loaded = false
	b.loadedURL = ""
	b.width, b.height = 0, 0
	if b.tlTimer != nil {
		b.tlTimer.Stop()
	}
	b.mu.Unlock()

	switch reason {
	case "eof":
		b.emit(player.EndEvent{Reason: player.EndReasonEOF})
	case "error":
		b.emit(player.EndEvent{Reason: player.EndReasonError})
	default: // stop, quit, redirect
		b.emit(player.EndEvent{Reason: player.EndReasonStop})
	}
}

func (b *Backend) emit(event player.BackendEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.events <- event:
	default:
		log.Warnf("mpv event dropped, consumer too slow: %T", event)
	}
}

// mpvTrack is one entry of mpv's track-list property.
type mpvTrack struct {
	ID               int    `json:"id"`
	Type             string `json:"type"`
	Lang             string `json:"lang"`
	Title            string `json:"title"`
	Selected         bool   `json:"selected"`
	Default          bool   `json:"default"`
	External         bool   `json:"external"`
	ExternalFilename string `json:"external-filename"`
}

func (b *Backend) trackLists() (player.TrackLists, error) {
	var raw []mpvTrack
	if err := b.getProperty("track-list", &raw); err != nil {
		return player.TrackLists{}, err
	}
	var tracks player.TrackLists
	for _, t := range raw {
		info := player.TrackInfo{
			ID:       t.ID,
			Lang:     t.Lang,
			Title:    t.Title,
			External: t.External,
			Path:     t.ExternalFilename,
			Selected: t.Selected,
			Default:  t.Default,
		}
		switch t.Type {
		case "sub":
			tracks.Subs = append(tracks.Subs, info)
		case "audio":
			tracks.Audios = append(tracks.Audios, info)
		}
	}
	return tracks, nil
}

func (b *Backend) getProperty(name string, target interface{}) error {
	data, err := b.ipc.Command("get_property", name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func (b *Backend) setProperty(name string, value interface{}) error {
	_, err := b.ipc.Command("set_property", name, value)
	return err
}

// requireMedia maps commands issued while nothing is loaded onto ErrNoMedia.
func (b *Backend) requireMedia() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		return player.ErrNoMedia
	}
	return nil
}

func (b *Backend) Load(url string) error {
	b.mu.Lock()
	b.pendingURL = url
	b.mu.Unlock()
	if _, err := b.ipc.Command("loadfile", url, "replace"); err != nil {
		return err
	}
	// The pause property is sticky across loads, a previously paused item
	// must not leave the new one frozen.
	return b.setProperty("pause", false)
}

// Play and Pause poke the pause property. mpv accepts this at any time, the
// value simply takes effect when media is loaded.
func (b *Backend) Play() error {
	return b.setProperty("pause", false)
}

func (b *Backend) Pause() error {
	return b.setProperty("pause", true)
}

func (b *Backend) Stop() error {
	_, err := b.ipc.Command("stop")
	return err
}

func (b *Backend) Seek(pos time.Duration) error {
	if err := b.requireMedia(); err != nil {
		return err
	}
	_, err := b.ipc.Command("seek", pos.Seconds(), "absolute")
	return err
}

func (b *Backend) SetVolume(vol int) error {
	return b.setProperty("volume", vol)
}

func (b *Backend) SetMute(mute bool) error {
	return b.setProperty("mute", mute)
}

func (b *Backend) SetPlaySpeed(speed float64) error {
	return b.setProperty("speed", speed)
}

func (b *Backend) SetRotation(degree int) error {
	return b.setProperty("video-rotate", degree)
}

func (b *Backend) SetAspect(ratio float64) error {
	if ratio <= 0 {
		// Restores the aspect ratio encoded in the media.
		return b.setProperty("video-aspect-override", -1)
	}
	return b.setProperty("video-aspect-override", ratio)
}

func (b *Backend) SetSoundMode(mode player.SoundMode) error {
	layout := map[player.SoundMode]string{
		player.SoundModeStereo: "stereo",
		player.SoundModeLeft:   "fl",
		player.SoundModeRight:  "fr",
	}[mode]
	if layout == "" {
		return fmt.Errorf("unknown sound mode %q", mode)
	}
	return b.setProperty("audio-channels", layout)
}

func (b *Backend) SelectAudioTrack(id int) error {
	if err := b.requireMedia(); err != nil {
		return err
	}
	return b.setProperty("aid", id)
}

func (b *Backend) SelectSubtitleTrack(id int) error {
	if err := b.requireMedia(); err != nil {
		return err
	}
	if id < 0 {
		return b.setProperty("sid", "no")
	}
	return b.setProperty("sid", id)
}

func (b *Backend) SetSubtitleVisible(visible bool) error {
	return b.setProperty("sub-visibility", visible)
}

func (b *Backend) SetSubtitleDelay(secs float64) error {
	return b.setProperty("sub-delay", secs)
}

func (b *Backend) SetSubtitleCodepage(cp string) error {
	if cp == "" {
		cp = "auto"
	}
	return b.setProperty("sub-codepage", cp)
}

func (b *Backend) SetSubtitleStyle(font string, size int) error {
	if font != "" {
		if err := b.setProperty("sub-font", font); err != nil {
			return err
		}
	}
	if size > 0 {
		if err := b.setProperty("sub-font-size", size); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) AddSubtitleFile(path string) error {
	if err := b.requireMedia(); err != nil {
		return err
	}
	// "select" activates the new track right away and triggers a
	// track-list change.
	_, err := b.ipc.Command("sub-add", path, "select")
	return err
}

func (b *Backend) AddSubtitleSearchPath(path string) error {
	_, err := b.ipc.Command("change-list", "sub-file-paths", "append", path)
	return err
}

// CaptureFrame grabs the current video frame by having mpv write it to a
// temporary PNG file.
func (b *Backend) CaptureFrame() (image.Image, error) {
	if err := b.requireMedia(); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp("", "vidbox-shot-*.png")
	if err != nil {
		return nil, err
	}
	name := f.Name()
	f.Close()
	defer os.Remove(name)

	if _, err := b.ipc.Command("screenshot-to-file", name, "video"); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	f, err = os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

func (b *Backend) Events() <-chan player.BackendEvent {
	return b.events
}

// Close terminates the mpv process. A graceful quit is attempted first, the
// process is killed if it does not exit in time.
func (b *Backend) Close() error {
	b.ipc.Command("quit")
	b.ipc.Close()
	if b.eventConn != nil {
		b.eventConn.Close()
	}
	select {
	case <-b.exited:
	case <-time.After(time.Second * 3):
		if b.cmd.Process != nil {
			b.cmd.Process.Kill()
		}
		<-b.exited
	}
	os.Remove(b.socketPath)
	return nil
}

func secsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
