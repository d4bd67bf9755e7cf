package handlers

import (
	"net/http"

	"github.com/draup/assetexplorer/explorer/pkg/scene"
	"github.com/draup/assetexplorer/explorer/pkg/session"
)

func (a *API) GetExplorer(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, sessionFrom(r).Explorer())
}

type cursorRequest struct {
	Day int64 `json:"day"`
}

// PutExplorerCursor moves the time cursor. Out-of-range days are clamped.
func (a *API) PutExplorerCursor(w http.ResponseWriter, r *http.Request) {
	var req cursorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFrom(r)
	s.SetCursor(req.Day)
	a.writeJSON(w, http.StatusOK, s.Explorer())
}

type layoutRequest struct {
	Layout string `json:"layout"`
}

func (a *API) PutExplorerLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	layout, err := scene.ParseLayout(req.Layout)
	if err != nil {
		a.writeError(w, "Failed to change layout", err)
		return
	}
	s := sessionFrom(r)
	s.SetLayout(layout)
	a.writeJSON(w, http.StatusOK, s.Explorer())
}

const (
	pointerDown  = "down"
	pointerClick = "click"
)

type pointerRequest struct {
	Type  string  `json:"type"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Index int     `json:"index"`
}

type pointerResponse struct {
	Selected bool             `json:"selected"`
	Explorer session.Explorer `json:"explorer"`
}

// PostExplorerPointer takes pointer-down and click events. A click on a
// point selects it unless the pointer was dragged.
func (a *API) PostExplorerPointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFrom(r)
	var selected bool
	switch req.Type {
	case pointerDown:
		s.PointerDown(req.X, req.Y)
	case pointerClick:
		var err error
		selected, err = s.Click(req.Index, req.X, req.Y)
		if err != nil {
			a.writeError(w, "Failed to select point", err)
			return
		}
	default:
		http.Error(w, "type must be down or click", http.StatusBadRequest)
		return
	}
	a.writeJSON(w, http.StatusOK, pointerResponse{Selected: selected, Explorer: s.Explorer()})
}
