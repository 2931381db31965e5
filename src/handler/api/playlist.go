package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func (api *API) jsonPlaylist() map[string]interface{} {
	pl := api.engine.Playlist()
	return map[string]interface{}{
		"index": pl.CurrentIndex(),
		"items": pl.Items(),
	}
}

func (api *API) playlistContents(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(api.jsonPlaylist())
}

func (api *API) playlistInsert(w http.ResponseWriter, r *http.Request) {
	var data struct {
		URIs []string `json:"uris"`
		Dir  string   `json:"dir"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	var accepted []string
	if data.Dir != "" {
		accepted = api.engine.AddPlayDir(data.Dir)
	} else {
		accepted = api.engine.AddPlayFiles(data.URIs)
	}
	if accepted == nil {
		accepted = []string{}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"accepted": accepted,
	})
}

func (api *API) playlistRemove(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Index *int `json:"index"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	if data.Index == nil {
		api.engine.ClearPlaylist()
	} else {
		idx := *data.Index
		if idx < 0 || idx >= api.engine.Playlist().Count() {
			WriteError(w, r, fmt.Errorf("playlist index %d out of range", idx))
			return
		}
		api.engine.Playlist().Remove(idx)
	}
	w.Write([]byte("{}"))
}
