// Package mpd provides an audio only backend on top of a Music Player
// Daemon server. Video and subtitle capabilities report ErrUnsupported.
package mpd

import (
	"fmt"
	"image"
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	log "github.com/sirupsen/logrus"

	"vidbox/src/player"
)

const progressInterval = time.Second

// Backend implements player.Backend against an MPD server.
type Backend struct {
	addr, passwd string

	// Running the idle watcher on the same connection as command traffic
	// confuses MPD, so commands dial their own short lived connections.
	watcher *mpd.Watcher
	events  chan player.BackendEvent

	mu         sync.Mutex
	closed     bool
	loadedURL  string
	lastState  string
	expectStop bool
	// MPD has no mute, it is emulated by zeroing the volume and restoring
	// this value.
	lastVolume int
	muted      bool
}

func NewBackend(host string, port int, passwd string) (*Backend, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	watcher, err := mpd.NewWatcher("tcp", addr, passwd, "player")
	if err != nil {
		return nil, err
	}
	b := &Backend{
		addr:       addr,
		passwd:     passwd,
		watcher:    watcher,
		events:     make(chan player.BackendEvent, 128),
		lastVolume: 100,
	}
	go b.eventLoop()
	go b.progressLoop()
	return b, nil
}

func (b *Backend) withMpd(fn func(*mpd.Client) error) error {
	client, err := mpd.DialAuthenticated("tcp", b.addr, b.passwd)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

// eventLoop translates MPD player subsystem changes into BackendEvents.
func (b *Backend) eventLoop() {
	defer func() {
		b.mu.Lock()
		b.closed = true
		close(b.events)
		b.mu.Unlock()
	}()
	for {
		select {
		case _, ok := <-b.watcher.Event:
			if !ok {
				return
			}
			b.onPlayerChange()
		case err, ok := <-b.watcher.Error:
			if !ok {
				return
			}
			log.Errorf("MPD watcher: %v", err)
		}
	}
}

func (b *Backend) onPlayerChange() {
	var status mpd.Attrs
	err := b.withMpd(func(mpdc *mpd.Client) error {
		var err error
		status, err = mpdc.Status()
		return err
	})
	if err != nil {
		log.Errorf("MPD status: %v", err)
		return
	}

	b.mu.Lock()
	state := status["state"]
	prev := b.lastState
	b.lastState = state
	deliberate := b.expectStop
	if state == "stop" {
		b.expectStop = false
		b.loadedURL = ""
	}
	b.mu.Unlock()

	if state != "stop" || prev == "stop" || prev == "" {
		return
	}
	if deliberate {
		b.emit(player.EndEvent{Reason: player.EndReasonStop})
	} else {
		b.emit(player.EndEvent{Reason: player.EndReasonEOF})
	}
}

// progressLoop polls the elapsed time while MPD reports active playback.
func (b *Backend) progressLoop() {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for range ticker.C {
		b.mu.Lock()
		closed := b.closed
		active := b.lastState == "play"
		b.mu.Unlock()
		if closed {
			return
		}
		if !active {
			continue
		}
		err := b.withMpd(func(mpdc *mpd.Client) error {
			status, err := mpdc.Status()
			if err != nil {
				return err
			}
			if elapsed, err := strconv.ParseFloat(status["elapsed"], 64); err == nil {
				b.emit(player.ProgressEvent{Elapsed: secsToDuration(elapsed)})
			}
			return nil
		})
		if err != nil {
			log.Debugf("MPD progress poll: %v", err)
		}
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
		log.Warnf("MPD event dropped, consumer too slow: %T", event)
	}
}

func (b *Backend) requireMedia() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadedURL == "" {
		return player.ErrNoMedia
	}
	return nil
}

// Load replaces the MPD queue with the specified URL and starts playback.
// The OpenedEvent is emitted synchronously since MPD reports the duration as
// soon as decoding starts.
func (b *Backend) Load(url string) error {
	if !player.IsAudioFile(url) {
		return player.ErrUnplayable
	}
	var duration time.Duration
	err := b.withMpd(func(mpdc *mpd.Client) error {
		if err := mpdc.Clear(); err != nil {
			return err
		}
		if err := mpdc.Add(url); err != nil {
			return err
		}
		if err := mpdc.Play(0); err != nil {
			return err
		}
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		if secs, err := strconv.ParseFloat(status["duration"], 64); err == nil {
			duration = secsToDuration(secs)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.loadedURL = url
	b.lastState = "play"
	b.mu.Unlock()
	b.emit(player.OpenedEvent{URL: url, Duration: duration})
	return nil
}

func (b *Backend) Play() error {
	if err := b.requireMedia(); err != nil {
		return err
	}
	return b.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.Pause(false)
	})
}

func (b *Backend) Pause() error {
	if err := b.requireMedia(); err != nil {
		return err
	}
	return b.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.Pause(true)
	})
}

func (b *Backend) Stop() error {
	b.mu.Lock()
	b.expectStop = true
	b.mu.Unlock()
	return b.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.Stop()
	})
}

func (b *Backend) Seek(pos time.Duration) error {
	if err := b.requireMedia(); err != nil {
		return err
	}
	return b.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.SeekCur(pos, false)
	})
}

func (b *Backend) SetVolume(vol int) error {
	b.mu.Lock()
	b.lastVolume = vol
	muted := b.muted
	b.mu.Unlock()
	if muted {
		return nil
	}
	return b.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.SetVolume(vol)
	})
}

func (b *Backend) SetMute(mute bool) error {
	b.mu.Lock()
	b.muted = mute
	vol := b.lastVolume
	b.mu.Unlock()
	if mute {
		vol = 0
	}
	return b.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.SetVolume(vol)
	})
}

func (b *Backend) SetPlaySpeed(speed float64) error { return player.ErrUnsupported }
func (b *Backend) SetRotation(degree int) error     { return player.ErrUnsupported }
func (b *Backend) SetAspect(ratio float64) error    { return player.ErrUnsupported }

func (b *Backend) SetSoundMode(mode player.SoundMode) error { return player.ErrUnsupported }

func (b *Backend) SelectAudioTrack(id int) error         { return player.ErrUnsupported }
func (b *Backend) SelectSubtitleTrack(id int) error      { return player.ErrUnsupported }
func (b *Backend) SetSubtitleVisible(visible bool) error { return player.ErrUnsupported }
func (b *Backend) SetSubtitleDelay(secs float64) error   { return player.ErrUnsupported }
func (b *Backend) SetSubtitleCodepage(cp string) error   { return player.ErrUnsupported }
func (b *Backend) SetSubtitleStyle(font string, size int) error {
	return player.ErrUnsupported
}
func (b *Backend) AddSubtitleFile(path string) error       { return player.ErrUnsupported }
func (b *Backend) AddSubtitleSearchPath(path string) error { return player.ErrUnsupported }

func (b *Backend) CaptureFrame() (image.Image, error) {
	return nil, player.ErrUnsupported
}

func (b *Backend) Events() <-chan player.BackendEvent {
	return b.events
}

func (b *Backend) Close() error {
	return b.watcher.Close()
}

func secsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
