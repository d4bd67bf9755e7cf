package handlers

import (
	"net/http"

	"github.com/draup/assetexplorer/explorer/pkg/session"
	"github.com/draup/assetexplorer/explorer/pkg/table"
)

func (a *API) GetTable(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, sessionFrom(r).Table())
}

type filterRequest struct {
	Query string `json:"query"`
	// Flush applies the filter now instead of after the typing pause.
	Flush bool `json:"flush"`
}

type filterResponse struct {
	Query   string `json:"query"`
	Pending bool   `json:"pending"`
}

// PutTableFilter records filter input. The filter is applied once input
// pauses, so the response is 202 unless the request asked to flush.
func (a *API) PutTableFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFrom(r)
	s.SetFilterInput(req.Query)
	if req.Flush {
		s.FlushFilter()
		a.writeJSON(w, http.StatusOK, filterResponse{Query: req.Query})
		return
	}
	a.writeJSON(w, http.StatusAccepted, filterResponse{Query: req.Query, Pending: s.FilterPending()})
}

type sortRequest struct {
	Column table.ColumnID `json:"column"`
	// Direction sets the sort explicitly; when absent the column's sort
	// cycles asc, desc, none.
	Direction *table.SortDirection `json:"direction,omitempty"`
}

func (a *API) PostTableSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFrom(r)
	var err error
	if req.Direction != nil {
		err = s.SetSort(req.Column, *req.Direction)
	} else {
		_, err = s.ToggleSort(req.Column)
	}
	if err != nil {
		a.writeError(w, "Failed to sort table", err)
		return
	}
	a.writeJSON(w, http.StatusOK, s.Table())
}

type pageRequest struct {
	Action session.PageAction `json:"action"`
	Index  int                `json:"index"`
}

func (a *API) PostTablePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFrom(r)
	if _, err := s.Paginate(req.Action, req.Index); err != nil {
		a.writeError(w, "Failed to change page", err)
		return
	}
	a.writeJSON(w, http.StatusOK, s.Table())
}

type pageSizeRequest struct {
	Size int `json:"size"`
}

func (a *API) PutTablePageSize(w http.ResponseWriter, r *http.Request) {
	var req pageSizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFrom(r)
	if err := s.SetPageSize(req.Size); err != nil {
		a.writeError(w, "Failed to change page size", err)
		return
	}
	a.writeJSON(w, http.StatusOK, s.Table())
}
