package api

import (
	"encoding/json"
	"net/http"
)

func (api *API) subtitleSelect(w http.ResponseWriter, r *http.Request) {
	var data struct {
		ID int `json:"id"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.SelectSubtitle(data.ID)
	w.Write([]byte("{}"))
}

func (api *API) subtitleToggleVisible(w http.ResponseWriter, r *http.Request) {
	api.engine.ToggleSubtitle()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"visible": api.engine.SubVisible(),
	})
}

func (api *API) subtitleSetDelay(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Delay float64 `json:"delay"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.SetSubDelay(data.Delay)
	w.Write([]byte("{}"))
}

func (api *API) subtitleSetCodepage(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Codepage string `json:"codepage"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.SetSubCodepage(data.Codepage)
	w.Write([]byte("{}"))
}

func (api *API) subtitleSetStyle(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Font string `json:"font"`
		Size int    `json:"size"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.UpdateSubStyle(data.Font, data.Size)
	w.Write([]byte("{}"))
}

func (api *API) subtitleAddSearchPath(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Path string `json:"path"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.engine.AddSubSearchPath(data.Path)
	w.Write([]byte("{}"))
}

func (api *API) subtitleAddFile(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Path string `json:"path"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := api.engine.LoadSubtitle(data.Path); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

// subtitleSearchOnline kicks off an online subtitle search for the currently
// loaded item. The outcome arrives as a subtitle:online event on the event
// stream.
func (api *API) subtitleSearchOnline(w http.ResponseWriter, r *http.Request) {
	api.engine.LoadOnlineSubtitle(api.engine.CurrentURL())
	w.Write([]byte("{}"))
}
