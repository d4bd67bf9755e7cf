package handlers

import (
	"context"
	"net/http"
	"strings"
)

// Resolve maps ?input= (an address or ENS name) to an address.
func (a *API) Resolve(w http.ResponseWriter, r *http.Request) {
	input := strings.TrimSpace(r.URL.Query().Get("input"))
	if input == "" {
		http.Error(w, "input is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.ResolveTimeout)
	defer cancel()

	res, err := a.cfg.Resolver.Resolve(ctx, input)
	if err != nil {
		a.writeError(w, "Failed to resolve address", err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}
