package api

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"vidbox/src/player"
	"vidbox/src/util/eventsource"
)

// API contains the state that is accessible over the REST API.
type API struct {
	engine *player.Engine
}

func (api *API) status() map[string]interface{} {
	w, h := api.engine.VideoSize()
	return map[string]interface{}{
		"state":    api.engine.State().String(),
		"uri":      api.engine.CurrentURL(),
		"time":     int(api.engine.Elapsed() / time.Second),
		"duration": int(api.engine.Duration() / time.Second),
		"volume":   api.engine.Volume(),
		"muted":    api.engine.Muted(),
		"speed":    api.engine.PlaySpeed(),
		"sound":    string(api.engine.SoundMode()),
		"rotation": api.engine.VideoRotation(),
		"aspect":   api.engine.VideoAspect(),
		"width":    w,
		"height":   h,
	}
}

func (api *API) playerStatus(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(api.status())
}

func (api *API) playerPlay(w http.ResponseWriter, r *http.Request) {
	api.engine.Play()
	w.Write([]byte("{}"))
}

func (api *API) playerPause(w http.ResponseWriter, r *http.Request) {
	api.engine.PauseResume()
	w.Write([]byte("{}"))
}

func (api *API) playerStop(w http.ResponseWriter, r *http.Request) {
	api.engine.Stop()
	w.Write([]byte("{}"))
}

func (api *API) playerNext(w http.ResponseWriter, r *http.Request) {
	api.engine.Next()
	w.Write([]byte("{}"))
}

func (api *API) playerPrev(w http.ResponseWriter, r *http.Request) {
	api.engine.Prev()
	w.Write([]byte("{}"))
}

func (api *API) playerSetCurrent(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Current int    `json:"current"`
		URI     string `json:"uri"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	if data.URI != "" {
		api.engine.PlayByName(data.URI)
	} else {
		api.engine.PlaySelected(data.Current)
	}
	w.Write([]byte("{}"))
}

func (api *API) playerGetTime(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"time": int(api.engine.Elapsed() / time.Second),
	})
}

func (api *API) playerSetTime(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Time     int  `json:"time"`
		Relative bool `json:"relative"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	switch {
	case !data.Relative:
		api.engine.SeekAbsolute(time.Duration(data.Time) * time.Second)
	case data.Time >= 0:
		api.engine.SeekForward(data.Time)
	default:
		api.engine.SeekBackward(-data.Time)
	}
	w.Write([]byte("{}"))
}

func (api *API) playerGetVolume(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"volume": api.engine.Volume(),
		"muted":  api.engine.Muted(),
	})
}

func (api *API) playerSetVolume(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Volume int `json:"volume"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.ChangeVolume(data.Volume)
	w.Write([]byte("{}"))
}

func (api *API) playerToggleMute(w http.ResponseWriter, r *http.Request) {
	api.engine.ToggleMute()
	w.Write([]byte("{}"))
}

func (api *API) playerSetSpeed(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Speed float64 `json:"speed"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.SetPlaySpeed(data.Speed)
	w.Write([]byte("{}"))
}

func (api *API) playerSetRotation(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Rotation int `json:"rotation"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.SetVideoRotation(data.Rotation)
	w.Write([]byte("{}"))
}

func (api *API) playerSetAspect(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Aspect float64 `json:"aspect"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.SetVideoAspect(data.Aspect)
	w.Write([]byte("{}"))
}

func (api *API) playerSetSoundMode(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Mode string `json:"mode"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.SetSoundMode(player.SoundMode(data.Mode))
	w.Write([]byte("{}"))
}

func (api *API) playerTracks(w http.ResponseWriter, r *http.Request) {
	info := api.engine.PlayingMovieInfo()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"subs":   info.Subs,
		"audios": info.Audios,
		"aid":    api.engine.Aid(),
		"sid":    api.engine.Sid(),
	})
}

func (api *API) playerSelectAudioTrack(w http.ResponseWriter, r *http.Request) {
	var data struct {
		ID int `json:"id"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.SelectTrack(data.ID)
	w.Write([]byte("{}"))
}

func (api *API) playerEvents(w http.ResponseWriter, r *http.Request) {
	es, err := eventsource.Begin(w, r)
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	emitter := api.engine.Events()
	listener := emitter.Listen()
	defer emitter.Unlisten(listener)

	// Send the full state up front so a freshly connected control does not
	// have to wait for something to change.
	es.EventJSON("status", api.status())
	es.EventJSON("playlist", api.jsonPlaylist())

	for {
		var event interface{}
		select {
		case event = <-listener:
		case <-r.Context().Done():
			return
		}

		switch t := event.(type) {
		case player.StateEvent:
			es.EventJSON("state", map[string]interface{}{"state": t.State.String()})
		case player.TimeEvent:
			es.EventJSON("time", map[string]interface{}{"time": int(t.Elapsed / time.Second)})
		case player.FileLoadedEvent:
			es.EventJSON("fileloaded", map[string]interface{}{"uri": t.URL, "duration": int(api.engine.Duration() / time.Second)})
		case player.VideoSizeEvent:
			es.EventJSON("videosize", map[string]interface{}{"width": t.Width, "height": t.Height})
		case player.VolumeEvent:
			es.EventJSON("volume", map[string]interface{}{"volume": t.Volume, "muted": api.engine.Muted()})
		case player.MuteEvent:
			es.EventJSON("volume", map[string]interface{}{"volume": api.engine.Volume(), "muted": t.Muted})
		case player.TracksEvent:
			es.EventJSON("tracks", map[string]interface{}{"subs": t.Info.Subs, "audios": t.Info.Audios})
		case player.AudioTrackEvent:
			es.EventJSON("track:audio", map[string]interface{}{"id": t.ID})
		case player.SubtitleTrackEvent:
			es.EventJSON("track:subtitle", map[string]interface{}{"id": t.ID})
		case player.SubtitleCodepageEvent:
			es.EventJSON("subtitle:codepage", map[string]interface{}{"codepage": t.Codepage})
		case player.OnlineSubtitlesEvent:
			es.EventJSON("subtitle:online", map[string]interface{}{
				"uri":     t.URL,
				"success": t.Success,
				"reason":  t.Reason,
			})
		case player.PlaybackErrorEvent:
			es.EventJSON("error", map[string]interface{}{"uri": t.URL, "reason": t.Reason})
		case player.PlaylistEvent:
			es.EventJSON("playlist", api.jsonPlaylist())
		case player.PlaylistAppendedEvent:
			es.EventJSON("playlist:appended", map[string]interface{}{"items": t.Items})
		case player.ScreenshotEvent:
			// Frames are fetched over /screenshot, only announce them here.
			es.EventJSON("screenshot", struct{}{})
		default:
			log.Debugf("Unmapped event %#v", event)
		}
	}
}
