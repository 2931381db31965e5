package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"vidbox/src/player"
)

// InitRouter attaches all API routes to the specified router.
func InitRouter(r chi.Router, engine *player.Engine) {
	api := API{engine: engine}
	r.Route("/player", func(r chi.Router) {
		r.Use(jsonCtx)
		r.Get("/status", api.playerStatus)
		r.Post("/play", api.playerPlay)
		r.Post("/pause", api.playerPause)
		r.Post("/stop", api.playerStop)
		r.Post("/next", api.playerNext)
		r.Post("/prev", api.playerPrev)
		r.Post("/current", api.playerSetCurrent)
		r.Get("/time", api.playerGetTime)
		r.Post("/time", api.playerSetTime)
		r.Get("/volume", api.playerGetVolume)
		r.Post("/volume", api.playerSetVolume)
		r.Post("/mute", api.playerToggleMute)
		r.Post("/speed", api.playerSetSpeed)
		r.Post("/rotation", api.playerSetRotation)
		r.Post("/aspect", api.playerSetAspect)
		r.Post("/sound", api.playerSetSoundMode)
		r.Get("/tracks", api.playerTracks)
		r.Post("/tracks/audio", api.playerSelectAudioTrack)
		r.Get("/events", api.playerEvents)
	})
	r.Route("/playlist", func(r chi.Router) {
		r.Use(jsonCtx)
		r.Get("/", api.playlistContents)
		r.Put("/", api.playlistInsert)
		r.Delete("/", api.playlistRemove)
	})
	r.Route("/subtitles", func(r chi.Router) {
		r.Use(jsonCtx)
		r.Post("/select", api.subtitleSelect)
		r.Post("/visible", api.subtitleToggleVisible)
		r.Post("/delay", api.subtitleSetDelay)
		r.Post("/codepage", api.subtitleSetCodepage)
		r.Post("/style", api.subtitleSetStyle)
		r.Post("/searchpath", api.subtitleAddSearchPath)
		r.Put("/", api.subtitleAddFile)
		r.Post("/online", api.subtitleSearchOnline)
	})
	r.Route("/screenshot", func(r chi.Router) {
		r.Get("/", api.screenshotTake)
		r.Post("/burst", api.screenshotBurstStart)
		r.Delete("/burst", api.screenshotBurstStop)
	})
}

// WriteError writes an error to the client or an empty object if err is nil.
//
// An attempt is made to tune the response format to the requestor.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	log.Errorf("Error serving %s: %v", r.RemoteAddr, err)
	w.WriteHeader(http.StatusBadRequest)

	if r.Header.Get("X-Requested-With") == "" {
		w.Write([]byte(err.Error()))
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

func jsonCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
