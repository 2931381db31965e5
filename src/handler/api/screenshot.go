package api

import (
	"image/png"
	"net/http"

	log "github.com/sirupsen/logrus"
)

func (api *API) screenshotTake(w http.ResponseWriter, r *http.Request) {
	img, err := api.engine.TakeScreenshot()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		// Headers are out the door, all we can do is log.
		log.Errorf("Could not encode screenshot for %s: %v", r.RemoteAddr, err)
	}
}

func (api *API) screenshotBurstStart(w http.ResponseWriter, r *http.Request) {
	api.engine.BurstScreenshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("{}"))
}

func (api *API) screenshotBurstStop(w http.ResponseWriter, r *http.Request) {
	api.engine.StopBurstScreenshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("{}"))
}
