package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/draup/assetexplorer/explorer/pkg/session"
	"github.com/draup/assetexplorer/explorer/pkg/timefmt"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
)

// CreateSession starts a session, taking the locale from the request and an
// optional ?timezone= and ?connected= wallet.
func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.store.Create()
	if err != nil {
		a.writeError(w, "Failed to create session", err)
		return
	}
	a.syncSessionGauge()

	if _, err := s.SetPreferences(timefmt.ResolveLocale(r), r.URL.Query().Get("timezone")); err != nil {
		a.store.Delete(s.ID())
		a.syncSessionGauge()
		a.writeError(w, "Failed to set preferences", err)
		return
	}
	if connected := r.URL.Query().Get("connected"); connected != "" {
		if _, err := s.SetConnected(connected); err != nil {
			a.store.Delete(s.ID())
			a.syncSessionGauge()
			a.writeError(w, "Failed to set connected wallet", err)
			return
		}
	}
	a.writeJSON(w, http.StatusCreated, s.State())
}

func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, sessionFrom(r).State())
}

func (a *API) DeleteSession(w http.ResponseWriter, r *http.Request) {
	a.store.Delete(sessionFrom(r).ID())
	a.syncSessionGauge()
	w.WriteHeader(http.StatusNoContent)
}

type connectedRequest struct {
	Address string `json:"address"`
}

// PutConnected sets or clears (empty address) the connected wallet.
func (a *API) PutConnected(w http.ResponseWriter, r *http.Request) {
	var req connectedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := sessionFrom(r).SetConnected(req.Address)
	if err != nil {
		a.writeError(w, "Failed to set connected wallet", err)
		return
	}
	a.writeJSON(w, http.StatusOK, st)
}

type addressRequest struct {
	Input string `json:"input"`
}

// PutAddress resolves a new search input. Resolution failures are reported
// in the returned state rather than as an error status.
func (a *API) PutAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.ResolveTimeout)
	defer cancel()

	st, err := sessionFrom(r).SetAddressInput(ctx, req.Input)
	if err != nil {
		a.writeError(w, "Failed to resolve address", err)
		return
	}
	a.writeJSON(w, http.StatusOK, st)
}

type loadRequest struct {
	Trigger string `json:"trigger"`
}

// PostLoad fetches the trigger's wallet. By default the load runs in the
// background and 202 is returned; ?wait=true blocks until it finishes.
// Query failures are not reported to the visitor: the state simply keeps
// its previous records.
func (a *API) PostLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trigger, err := session.ParseTrigger(req.Trigger)
	if err != nil {
		a.writeError(w, "Failed to load transfers", err)
		return
	}
	s := sessionFrom(r)

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		if err := s.StartLoad(a.ctx, trigger); err != nil {
			a.writeError(w, "Failed to load transfers", err)
			return
		}
		a.writeJSON(w, http.StatusAccepted, s.State())
		return
	}

	if err := s.Load(r.Context(), trigger); err != nil {
		if _, _, ok := clientError(err); ok {
			a.writeError(w, "Failed to load transfers", err)
			return
		}
	}
	a.writeJSON(w, http.StatusOK, s.State())
}

type viewRequest struct {
	View string `json:"view"`
}

func (a *API) PutView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := sessionFrom(r).SetView(session.ViewMode(req.View))
	if err != nil {
		a.writeError(w, "Failed to switch view", err)
		return
	}
	a.writeJSON(w, http.StatusOK, st)
}

type preferencesRequest struct {
	Locale   string `json:"locale"`
	Timezone string `json:"timezone"`
}

func (a *API) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := sessionFrom(r).SetPreferences(req.Locale, req.Timezone)
	if err != nil {
		a.writeError(w, "Failed to set preferences", err)
		return
	}
	a.writeJSON(w, http.StatusOK, st)
}

// RecordItem is one loaded record in query order.
type RecordItem struct {
	Index           int                   `json:"index"`
	ContractAddress string                `json:"contractAddress"`
	SourceAddress   string                `json:"sourceAddress"`
	TargetAddress   string                `json:"targetAddress,omitempty"`
	InboundTxHash   string                `json:"inboundTxHash"`
	OutboundTxHash  string                `json:"outboundTxHash,omitempty"`
	InboundType     transfer.InboundType  `json:"inboundType"`
	OutboundType    transfer.OutboundType `json:"outboundType"`
	Summary         transfer.Summary      `json:"summary"`
}

// GetRecords pages through the raw loaded records with ?limit= and ?offset=.
func (a *API) GetRecords(w http.ResponseWriter, r *http.Request) {
	records := sessionFrom(r).Records()
	page := ParsePagination(r, DefaultLimit)
	start, end := page.Window(len(records))

	items := make([]RecordItem, 0, end-start)
	for i := start; i < end; i++ {
		rec := records[i]
		items = append(items, RecordItem{
			Index:           i,
			ContractAddress: rec.ContractAddress,
			SourceAddress:   rec.SourceAddress,
			TargetAddress:   rec.TargetAddress,
			InboundTxHash:   rec.InboundTxHash,
			OutboundTxHash:  rec.OutboundTxHash,
			InboundType:     rec.InboundType,
			OutboundType:    rec.OutboundType,
			Summary:         rec.Summary(),
		})
	}
	a.writeJSON(w, http.StatusOK, PaginatedResponse[RecordItem]{
		Items:  items,
		Total:  len(records),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}
