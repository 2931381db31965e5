package player

import (
	"image"
	"os"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"vidbox/src/resume"
	"vidbox/src/subtitle"
	"vidbox/src/util"
)

const (
	// MaxVolume bounds the volume range, 0..MaxVolume.
	MaxVolume  = 100
	volumeStep = 10

	// waitEndTimeout bounds how long a play intent is deferred while the
	// backend has not yet confirmed release of the previous media.
	waitEndTimeout = time.Second * 2

	// Positions this close to the start or the end are not worth resuming
	// from.
	resumeMinPosition = time.Second * 10
	resumeEndMargin   = time.Second * 5

	burstScreenshotInterval = time.Millisecond * 500
)

// Engine owns the playback state machine. It serializes asynchronous backend
// events and synchronous user commands onto a single control loop and
// mediates between the playlist and the backend.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	events util.Emitter

	backend  Backend
	playlist *Playlist
	fetcher  subtitle.Fetcher
	resume   *resume.Store

	tasks chan func()
	quit  chan struct{}
	once  sync.Once

	// WaitEndTimeout overrides the bounded wait for the backend's
	// end-of-playback confirmation. Must be set before use.
	WaitEndTimeout time.Duration

	// The fields below are owned by the control loop.
	state      CoreState
	currentURL string
	info       PlayingMovieInfo
	sid        int
	aid        int
	subVisible bool
	volume     int
	muted      bool
	speed      float64
	soundMode  SoundMode
	rotation   int
	aspect     float64
	subDelay   float64
	codepage   string
	subFont    string
	subSize    int
	elapsed    time.Duration
	duration   time.Duration
	videoW     int
	videoH     int

	pendingPlayReq *string
	waitingEnd     bool
	endTimer       *time.Timer

	burstStop chan struct{}
}

// NewEngine creates an engine driving the specified backend. The fetcher and
// the resume store may be nil, disabling online subtitle search and position
// resumption respectively.
func NewEngine(backend Backend, fetcher subtitle.Fetcher, resumeStore *resume.Store) *Engine {
	e := &Engine{
		backend:  backend,
		playlist: NewPlaylist(),
		fetcher:  fetcher,
		resume:   resumeStore,

		tasks: make(chan func(), 32),
		quit:  make(chan struct{}),

		WaitEndTimeout: waitEndTimeout,

		sid:        -1,
		aid:        -1,
		subVisible: true,
		volume:     MaxVolume,
		speed:      1.0,
		soundMode:  SoundModeStereo,
	}
	go e.run()
	go e.dispatchBackendEvents()
	go e.forwardPlaylistEvents()
	return e
}

// Events exposes the engine's notifications, see events.go for the types
// delivered.
func (e *Engine) Events() *util.Emitter {
	return &e.events
}

// Playlist returns the playlist this engine advances through.
func (e *Engine) Playlist() *Playlist {
	return e.playlist
}

// Close shuts down the control loop and the backend.
func (e *Engine) Close() error {
	var err error
	e.once.Do(func() {
		e.do(func() {
			e.stopBurst()
			e.savePosition()
		})
		close(e.quit)
		err = e.backend.Close()
	})
	return err
}

// run is the single control loop. Commands and backend events execute here
// one at a time, no two state transitions ever happen concurrently.
func (e *Engine) run() {
	for {
		select {
		case fn := <-e.tasks:
			fn()
		case <-e.quit:
			return
		}
	}
}

// post schedules fn on the control loop without waiting for it.
func (e *Engine) post(fn func()) {
	select {
	case e.tasks <- fn:
	case <-e.quit:
	}
}

// do runs fn on the control loop and waits for its completion.
func (e *Engine) do(fn func()) {
	done := make(chan struct{})
	select {
	case e.tasks <- func() {
		fn()
		close(done)
	}:
	case <-e.quit:
		return
	}
	select {
	case <-done:
	case <-e.quit:
	}
}

func (e *Engine) dispatchBackendEvents() {
	events := e.backend.Events()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			e.do(func() { e.handleBackendEvent(event) })
		case <-e.quit:
			return
		}
	}
}

func (e *Engine) forwardPlaylistEvents() {
	listener := e.playlist.Events().Listen()
	defer e.playlist.Events().Unlisten(listener)
	for {
		select {
		case event := <-listener:
			e.events.Emit(event)
		case <-e.quit:
			return
		}
	}
}

// State returns the current playback phase.
func (e *Engine) State() CoreState {
	var s CoreState
	e.do(func() { s = e.state })
	return s
}

// PlayingMovieInfo returns the track snapshot of the loaded item. The
// snapshot is empty while the engine is Idle.
func (e *Engine) PlayingMovieInfo() PlayingMovieInfo {
	var info PlayingMovieInfo
	e.do(func() { info = e.info })
	return info
}

// CurrentURL returns the URL of the loaded item, or "".
func (e *Engine) CurrentURL() string {
	var url string
	e.do(func() { url = e.currentURL })
	return url
}

func (e *Engine) Elapsed() time.Duration {
	var d time.Duration
	e.do(func() { d = e.elapsed })
	return d
}

func (e *Engine) Duration() time.Duration {
	var d time.Duration
	e.do(func() { d = e.duration })
	return d
}

// VideoSize returns the dimensions of the loaded video, 0x0 when Idle or
// audio-only.
func (e *Engine) VideoSize() (w, h int) {
	e.do(func() { w, h = e.videoW, e.videoH })
	return
}

// Play begins playback of the playlist's current item. It is a no-op unless
// the engine is Idle and the playlist is non-empty.
func (e *Engine) Play() {
	e.do(func() {
		if e.state != Idle || e.currentURL != "" {
			return
		}
		if e.playlist.Count() == 0 {
			return
		}
		index := e.playlist.CurrentIndex()
		if index < 0 {
			index = 0
		}
		e.requestPlay(index)
	})
}

// PauseResume toggles between Playing and Paused. It is a no-op while Idle.
func (e *Engine) PauseResume() {
	e.do(func() {
		switch e.state {
		case Playing:
			if err := e.backend.Pause(); err != nil {
				log.Errorf("Could not pause: %v", err)
				return
			}
			e.setState(Paused)
		case Paused:
			if err := e.backend.Play(); err != nil {
				log.Errorf("Could not resume: %v", err)
				return
			}
			e.setState(Playing)
		}
	})
}

// Stop unloads the current media. The engine always ends up Idle. Any
// pending play intent is cancelled.
func (e *Engine) Stop() {
	e.do(func() {
		e.pendingPlayReq = nil
		if e.waitingEnd {
			// Already unloading. The end confirmation, or a later play
			// intent, rearms the wait as needed.
			e.cancelEndTimer()
			return
		}
		e.stopCurrent()
	})
}

// Next plays the next playlist item, wrapping around at the end. It is a
// no-op when the playlist is empty.
func (e *Engine) Next() {
	e.do(func() { e.requestPlay(e.playlist.NextIndex()) })
}

// Prev plays the previous playlist item, wrapping around at the start. It is
// a no-op when the playlist is empty.
func (e *Engine) Prev() {
	e.do(func() { e.requestPlay(e.playlist.PrevIndex()) })
}

// PlaySelected plays the playlist item at the specified index. Invalid
// indices are a no-op.
func (e *Engine) PlaySelected(index int) {
	e.do(func() { e.requestPlay(index) })
}

// PlayByName plays the playlist item with the specified URL. URLs not in the
// playlist are appended first if playable.
func (e *Engine) PlayByName(url string) {
	if index := e.playlist.IndexOf(url); index >= 0 {
		e.PlaySelected(index)
		return
	}
	if !IsPlayableFile(url) {
		return
	}
	e.playlist.Append(NewPlayItem(url))
	e.PlaySelected(e.playlist.Count() - 1)
}

// ClearPlaylist drops all playlist items. Playback of the loaded item
// continues.
func (e *Engine) ClearPlaylist() {
	e.playlist.Clear()
}

// SeekAbsolute seeks to the specified position, clamped to the media's
// duration. It is a no-op while Idle.
func (e *Engine) SeekAbsolute(pos time.Duration) {
	e.do(func() { e.seek(pos) })
}

// SeekForward seeks the specified number of seconds forward.
func (e *Engine) SeekForward(secs int) {
	e.do(func() { e.seek(e.elapsed + time.Duration(secs)*time.Second) })
}

// SeekBackward seeks the specified number of seconds back.
func (e *Engine) SeekBackward(secs int) {
	e.do(func() { e.seek(e.elapsed - time.Duration(secs)*time.Second) })
}

func (e *Engine) seek(pos time.Duration) {
	if e.state == Idle {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if e.duration > 0 && pos > e.duration {
		pos = e.duration
	}
	if err := e.backend.Seek(pos); err != nil {
		log.Errorf("Could not seek to %v: %v", pos, err)
		return
	}
	e.elapsed = pos
	e.events.Emit(TimeEvent{Elapsed: pos})
}

// Volume returns the current volume in the range 0..MaxVolume.
func (e *Engine) Volume() int {
	var vol int
	e.do(func() { vol = e.volume })
	return vol
}

func (e *Engine) Muted() bool {
	var muted bool
	e.do(func() { muted = e.muted })
	return muted
}

// ChangeVolume sets the volume, clamped to 0..MaxVolume. The stored volume
// is unaffected by the mute flag.
func (e *Engine) ChangeVolume(vol int) {
	e.do(func() { e.changeVolume(vol) })
}

func (e *Engine) VolumeUp() {
	e.do(func() { e.changeVolume(e.volume + volumeStep) })
}

func (e *Engine) VolumeDown() {
	e.do(func() { e.changeVolume(e.volume - volumeStep) })
}

func (e *Engine) changeVolume(vol int) {
	if vol < 0 {
		vol = 0
	}
	if vol > MaxVolume {
		vol = MaxVolume
	}
	if err := e.backend.SetVolume(vol); err != nil {
		log.Errorf("Could not set volume: %v", err)
	}
	if vol != e.volume {
		e.volume = vol
		e.events.Emit(VolumeEvent{Volume: vol})
	}
}

// ToggleMute flips the mute flag. The volume value is preserved for restore.
func (e *Engine) ToggleMute() {
	e.do(func() {
		e.muted = !e.muted
		if err := e.backend.SetMute(e.muted); err != nil {
			log.Errorf("Could not set mute: %v", err)
		}
		e.events.Emit(MuteEvent{Muted: e.muted})
	})
}

// PlaySpeed returns the playback rate, 1.0 is normal speed.
func (e *Engine) PlaySpeed() float64 {
	var speed float64
	e.do(func() { speed = e.speed })
	return speed
}

func (e *Engine) SetPlaySpeed(speed float64) {
	if speed <= 0 {
		return
	}
	e.do(func() {
		if err := e.backend.SetPlaySpeed(speed); err != nil {
			log.Errorf("Could not set play speed: %v", err)
			return
		}
		e.speed = speed
	})
}

// VideoRotation returns the rotation in degrees, one of 0, 90, 180, 270.
func (e *Engine) VideoRotation() int {
	var deg int
	e.do(func() { deg = e.rotation })
	return deg
}

// SetVideoRotation accepts only multiples of 90 degrees.
func (e *Engine) SetVideoRotation(degree int) {
	degree = ((degree % 360) + 360) % 360
	if degree%90 != 0 {
		return
	}
	e.do(func() {
		if err := e.backend.SetRotation(degree); err != nil {
			log.Errorf("Could not set rotation: %v", err)
			return
		}
		e.rotation = degree
	})
}

func (e *Engine) VideoAspect() float64 {
	var r float64
	e.do(func() { r = e.aspect })
	return r
}

func (e *Engine) SetVideoAspect(ratio float64) {
	e.do(func() {
		if err := e.backend.SetAspect(ratio); err != nil {
			log.Errorf("Could not set aspect: %v", err)
			return
		}
		e.aspect = ratio
	})
}

// SoundMode returns the rendered channel selection.
func (e *Engine) SoundMode() SoundMode {
	var mode SoundMode
	e.do(func() { mode = e.soundMode })
	return mode
}

// SetSoundMode switches between stereo and single channel output. Unknown
// modes are a no-op.
func (e *Engine) SetSoundMode(mode SoundMode) {
	switch mode {
	case SoundModeStereo, SoundModeLeft, SoundModeRight:
	default:
		return
	}
	e.do(func() {
		if err := e.backend.SetSoundMode(mode); err != nil {
			log.Errorf("Could not set sound mode: %v", err)
			return
		}
		e.soundMode = mode
	})
}

// Aid returns the selected audio track as an index into
// PlayingMovieInfo.Audios, or -1.
func (e *Engine) Aid() int {
	var id int
	e.do(func() { id = e.aid })
	return id
}

// Sid returns the selected subtitle as an index into PlayingMovieInfo.Subs,
// or -1.
func (e *Engine) Sid() int {
	var id int
	e.do(func() { id = e.sid })
	return id
}

// SelectTrack selects the audio track at the specified index into
// PlayingMovieInfo.Audios. Unknown indices are a no-op.
func (e *Engine) SelectTrack(id int) {
	e.do(func() {
		if id < 0 || id >= len(e.info.Audios) {
			return
		}
		if err := e.backend.SelectAudioTrack(e.info.Audios[id].ID); err != nil {
			log.Errorf("Could not select audio track %d: %v", id, err)
			return
		}
		e.aid = id
		e.events.Emit(AudioTrackEvent{ID: id})
	})
}

// SelectSubtitle selects the subtitle at the specified index into
// PlayingMovieInfo.Subs. Unknown indices are a no-op.
func (e *Engine) SelectSubtitle(id int) {
	e.do(func() {
		if id < 0 || id >= len(e.info.Subs) {
			return
		}
		if err := e.backend.SelectSubtitleTrack(e.info.Subs[id].ID); err != nil {
			log.Errorf("Could not select subtitle %d: %v", id, err)
			return
		}
		e.sid = id
		e.events.Emit(SubtitleTrackEvent{ID: id})
	})
}

// SavePlaybackPosition persists the elapsed time of the loaded item for
// later resumption.
func (e *Engine) SavePlaybackPosition() {
	e.do(func() { e.savePosition() })
}

// TakeScreenshot captures the currently rendered frame.
func (e *Engine) TakeScreenshot() (image.Image, error) {
	var (
		frame image.Image
		err   error
	)
	e.do(func() {
		if e.state == Idle {
			err = ErrNoMedia
			return
		}
		frame, err = e.backend.CaptureFrame()
	})
	return frame, err
}

// BurstScreenshot starts repeated capturing of rendered frames. Each frame
// is delivered as a ScreenshotEvent until StopBurstScreenshot is called or
// the engine becomes Idle.
func (e *Engine) BurstScreenshot() {
	e.do(func() {
		if e.burstStop != nil || e.state == Idle {
			return
		}
		stop := make(chan struct{})
		e.burstStop = stop
		go e.burstLoop(stop)
	})
}

// StopBurstScreenshot cancels burst screenshotting. No new captures are
// scheduled after it returns, though one in-flight frame may still be
// delivered.
func (e *Engine) StopBurstScreenshot() {
	e.do(func() { e.stopBurst() })
}

func (e *Engine) stopBurst() {
	if e.burstStop != nil {
		close(e.burstStop)
		e.burstStop = nil
	}
}

func (e *Engine) burstLoop(stop chan struct{}) {
	ticker := time.NewTicker(burstScreenshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-e.quit:
			return
		case <-ticker.C:
			frame, err := e.backend.CaptureFrame()
			if err != nil {
				log.Debugf("Could not capture frame: %v", err)
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			e.events.Emit(ScreenshotEvent{Frame: frame})
		}
	}
}

// AddPlayFile classifies the URL and appends it to the playlist if playable.
// If the engine is Idle, playback of the new item begins.
func (e *Engine) AddPlayFile(url string) bool {
	if !IsPlayableFile(url) {
		return false
	}
	e.playlist.Append(NewPlayItem(url))
	e.do(func() {
		if e.state == Idle && e.currentURL == "" && !e.waitingEnd {
			e.requestPlay(e.playlist.Count() - 1)
		}
	})
	return true
}

// AddPlayFiles classifies the URLs and appends the playable subset to the
// playlist in input order. The accepted subset is returned, rejected entries
// are silently dropped.
func (e *Engine) AddPlayFiles(urls []string) []string {
	accepted := make([]string, 0, len(urls))
	items := make([]PlayItem, 0, len(urls))
	for _, url := range urls {
		if !IsPlayableFile(url) {
			continue
		}
		accepted = append(accepted, url)
		items = append(items, NewPlayItem(url))
	}
	e.playlist.Append(items...)
	return accepted
}

// AddPlayDir collects the playable files directly under the specified
// directory in lexicographic order and appends them to the playlist in the
// background. The accepted subset is returned.
func (e *Engine) AddPlayDir(dir string) []string {
	entries, err := os.ReadDir(localPath(dir))
	if err != nil {
		log.Errorf("Could not read directory %q: %v", dir, err)
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	accepted := make([]string, 0, len(names))
	items := make([]PlayItem, 0, len(names))
	for _, name := range names {
		url := localPath(dir) + "/" + name
		if !IsPlayableFile(url) {
			continue
		}
		accepted = append(accepted, url)
		items = append(items, NewPlayItem(url))
	}
	e.playlist.AppendAsync(items)
	return accepted
}

// requestPlay starts a play intent for the playlist item at the specified
// index. Invalid indices are a no-op.
func (e *Engine) requestPlay(index int) {
	item, ok := e.playlist.Get(index)
	if !ok {
		return
	}
	e.playlist.SetCurrentIndex(index)
	e.playIntent(item.URL)
}

// playIntent records the intent to load the specified URL. The load is
// issued immediately if the backend holds no media, and deferred until the
// backend confirms release of the previous media otherwise. A new intent
// supersedes any unfulfilled one, only the latest survives.
func (e *Engine) playIntent(url string) {
	if e.waitingEnd {
		e.pendingPlayReq = &url
		e.startEndTimer()
		return
	}
	if e.currentURL != "" {
		e.pendingPlayReq = &url
		e.stopCurrent()
		return
	}
	e.loadAndPlay(url)
}

// stopCurrent unloads the current media and begins waiting for the
// backend's end confirmation. The engine transitions to Idle immediately.
func (e *Engine) stopCurrent() {
	if e.state == Idle && e.currentURL == "" {
		return
	}
	e.savePosition()
	e.waitingEnd = true
	e.startEndTimer()
	if err := e.backend.Stop(); err != nil {
		log.Errorf("Could not stop backend: %v", err)
	}
	e.clearMovieState()
}

func (e *Engine) loadAndPlay(url string) {
	log.Infof("Loading %q", url)
	e.currentURL = url
	if err := e.backend.Load(url); err != nil {
		log.Errorf("Could not load %q: %v", url, err)
		e.currentURL = ""
		e.events.Emit(PlaybackErrorEvent{URL: url, Reason: err.Error()})
		return
	}
	if err := e.backend.Play(); err != nil {
		log.Errorf("Could not start playback of %q: %v", url, err)
	}
}

func (e *Engine) startEndTimer() {
	e.cancelEndTimer()
	e.endTimer = time.AfterFunc(e.WaitEndTimeout, func() {
		e.post(e.onWaitEndTimeout)
	})
}

func (e *Engine) cancelEndTimer() {
	if e.endTimer != nil {
		e.endTimer.Stop()
		e.endTimer = nil
	}
}

// onWaitEndTimeout force-proceeds with a deferred play intent when the
// backend's end confirmation never arrived within the bounded wait.
func (e *Engine) onWaitEndTimeout() {
	if !e.waitingEnd {
		return
	}
	log.Warnf("No end-of-playback confirmation from backend within %v, proceeding", e.WaitEndTimeout)
	e.waitingEnd = false
	e.cancelEndTimer()
	if e.pendingPlayReq != nil {
		url := *e.pendingPlayReq
		e.pendingPlayReq = nil
		e.loadAndPlay(url)
	}
}

func (e *Engine) setState(state CoreState) {
	if e.state == state {
		return
	}
	e.state = state
	e.events.Emit(StateEvent{State: state})
}

// clearMovieState resets all per-media state and settles in Idle. The track
// snapshot is replaced wholesale so observers never see a half cleared one.
func (e *Engine) clearMovieState() {
	e.stopBurst()
	e.currentURL = ""
	e.info = PlayingMovieInfo{}
	e.sid = -1
	e.aid = -1
	e.elapsed = 0
	e.duration = 0
	e.videoW = 0
	e.videoH = 0
	e.setState(Idle)
	e.events.Emit(TracksEvent{Info: e.info})
}

func (e *Engine) savePosition() {
	if e.resume == nil || e.currentURL == "" {
		return
	}
	if e.elapsed < resumeMinPosition || e.duration <= 0 {
		return
	}
	if e.elapsed > e.duration-resumeEndMargin {
		// Watched to the end, a resume point would be useless.
		if err := e.resume.Forget(e.currentURL); err != nil {
			log.Errorf("Could not clear resume position: %v", err)
		}
		return
	}
	if err := e.resume.Set(e.currentURL, e.elapsed); err != nil {
		log.Errorf("Could not save resume position: %v", err)
	}
}

func (e *Engine) handleBackendEvent(event BackendEvent) {
	switch t := event.(type) {
	case OpenedEvent:
		e.onOpened(t)
	case EndEvent:
		e.onEnd(t)
	case BackendErrorEvent:
		e.onBackendError(t)
	case TrackListEvent:
		e.onTrackList(t)
	case ProgressEvent:
		e.elapsed = t.Elapsed
		e.events.Emit(TimeEvent{Elapsed: t.Elapsed})
	case DurationEvent:
		e.duration = t.Duration
	case SizeEvent:
		if t.Width != e.videoW || t.Height != e.videoH {
			e.videoW, e.videoH = t.Width, t.Height
			e.events.Emit(VideoSizeEvent{Width: t.Width, Height: t.Height})
		}
	default:
		log.Debugf("Unhandled backend event %T", event)
	}
}

func (e *Engine) onOpened(t OpenedEvent) {
	if t.URL != "" && t.URL != e.currentURL {
		// Confirmation of a load that has since been superseded.
		log.Debugf("Discarding opened event for %q", t.URL)
		return
	}
	e.duration = t.Duration
	e.videoW, e.videoH = t.Width, t.Height
	e.applyTrackLists(t.Tracks)
	e.setState(Playing)
	e.events.Emit(FileLoadedEvent{URL: e.currentURL})
	e.events.Emit(VideoSizeEvent{Width: t.Width, Height: t.Height})

	e.applyStickySettings()
	e.resumePosition()
}

// applyStickySettings reapplies engine owned settings that must survive
// media changes to the freshly loaded media.
func (e *Engine) applyStickySettings() {
	if err := e.backend.SetVolume(e.volume); err != nil {
		log.Debugf("Could not apply volume: %v", err)
	}
	if err := e.backend.SetMute(e.muted); err != nil {
		log.Debugf("Could not apply mute: %v", err)
	}
	if e.speed != 1.0 {
		if err := e.backend.SetPlaySpeed(e.speed); err != nil {
			log.Debugf("Could not apply play speed: %v", err)
		}
	}
	if e.soundMode != SoundModeStereo {
		if err := e.backend.SetSoundMode(e.soundMode); err != nil {
			log.Debugf("Could not apply sound mode: %v", err)
		}
	}
	if err := e.backend.SetSubtitleVisible(e.subVisible); err != nil {
		log.Debugf("Could not apply subtitle visibility: %v", err)
	}
	if e.subDelay != 0 {
		if err := e.backend.SetSubtitleDelay(e.subDelay); err != nil {
			log.Debugf("Could not apply subtitle delay: %v", err)
		}
	}
	if e.codepage != "" {
		if err := e.backend.SetSubtitleCodepage(e.codepage); err != nil {
			log.Debugf("Could not apply subtitle codepage: %v", err)
		}
	}
	if e.subFont != "" || e.subSize != 0 {
		if err := e.backend.SetSubtitleStyle(e.subFont, e.subSize); err != nil {
			log.Debugf("Could not apply subtitle style: %v", err)
		}
	}
}

func (e *Engine) resumePosition() {
	if e.resume == nil {
		return
	}
	pos, ok := e.resume.Get(e.currentURL)
	if !ok || pos < resumeMinPosition {
		return
	}
	if e.duration > 0 && pos > e.duration-resumeEndMargin {
		return
	}
	log.Infof("Resuming %q at %v", e.currentURL, pos)
	if err := e.backend.Seek(pos); err != nil {
		log.Errorf("Could not seek to resume position: %v", err)
		return
	}
	e.elapsed = pos
	e.events.Emit(TimeEvent{Elapsed: pos})
}

// onEnd processes the backend's confirmation that the previous media has
// been released. Any deferred play intent is issued now. Natural ends
// advance through the playlist.
func (e *Engine) onEnd(t EndEvent) {
	e.cancelEndTimer()
	wasDeliberate := e.waitingEnd
	e.waitingEnd = false

	if e.currentURL != "" {
		if t.Reason == EndReasonEOF && e.resume != nil {
			// Watched to completion.
			if err := e.resume.Forget(e.currentURL); err != nil {
				log.Errorf("Could not clear resume position: %v", err)
			}
		} else {
			e.savePosition()
		}
	}
	e.clearMovieState()

	if e.pendingPlayReq != nil {
		url := *e.pendingPlayReq
		e.pendingPlayReq = nil
		e.loadAndPlay(url)
		return
	}
	if t.Reason == EndReasonEOF && !wasDeliberate {
		e.advance()
	}
}

// advance plays the next playlist item after a natural end of playback.
// Unlike Next, it does not wrap around, the engine settles in Idle after the
// last item.
func (e *Engine) advance() {
	index := e.playlist.CurrentIndex()
	if index >= 0 && index+1 < e.playlist.Count() {
		e.requestPlay(index + 1)
	}
}

// onBackendError handles a fatal failure of the current item. The engine
// settles in Idle and does not retry or auto-advance. A deferred play intent
// for a different item still proceeds, the failure does not concern it.
func (e *Engine) onBackendError(t BackendErrorEvent) {
	log.Errorf("Backend error: %s", t.Reason)
	e.cancelEndTimer()
	e.waitingEnd = false
	url := e.currentURL
	e.clearMovieState()
	e.events.Emit(PlaybackErrorEvent{URL: url, Reason: t.Reason})

	if e.pendingPlayReq != nil {
		url := *e.pendingPlayReq
		e.pendingPlayReq = nil
		e.loadAndPlay(url)
	}
}

// onTrackList replaces the track snapshot. Selections referencing tracks
// that are no longer present reset to the backend's defaults.
func (e *Engine) onTrackList(t TrackListEvent) {
	if e.state == Idle {
		return
	}
	e.applyTrackLists(t.Tracks)
}

func (e *Engine) applyTrackLists(tracks TrackLists) {
	e.info = PlayingMovieInfo{Subs: tracks.Subs, Audios: tracks.Audios}
	e.sid = selectedIndex(tracks.Subs)
	e.aid = selectedIndex(tracks.Audios)
	e.events.Emit(TracksEvent{Info: e.info})
	e.events.Emit(SubtitleTrackEvent{ID: e.sid})
	e.events.Emit(AudioTrackEvent{ID: e.aid})
}

func selectedIndex(tracks []TrackInfo) int {
	for i, tr := range tracks {
		if tr.Selected {
			return i
		}
	}
	for i, tr := range tracks {
		if tr.Default {
			return i
		}
	}
	return -1
}
