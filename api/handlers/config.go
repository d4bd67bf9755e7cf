package handlers

import (
	"net/http"

	"github.com/draup/assetexplorer/explorer/pkg/debounce"
	"github.com/draup/assetexplorer/explorer/pkg/scene"
	"github.com/draup/assetexplorer/explorer/pkg/table"
	"github.com/draup/assetexplorer/explorer/pkg/timefmt"
)

// PublicConfig holds configuration that is safe to expose to the frontend.
type PublicConfig struct {
	AppName           string         `json:"appName"`
	SentryDSN         string         `json:"sentryDsn,omitempty"`
	SentryEnvironment string         `json:"sentryEnvironment,omitempty"`
	QueryBackend      string         `json:"queryBackend"`
	DefaultTimezone   string         `json:"defaultTimezone"`
	FilterDebounceMs  int64          `json:"filterDebounceMs"`
	Locales           []string       `json:"locales"`
	PageSizes         []int          `json:"pageSizes"`
	Layouts           []scene.Layout `json:"layouts"`
}

func (c PublicConfig) withDefaults() PublicConfig {
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = timefmt.DefaultTimezone
	}
	if c.FilterDebounceMs == 0 {
		c.FilterDebounceMs = debounce.DefaultDelay.Milliseconds()
	}
	c.Locales = timefmt.Supported()
	c.PageSizes = table.PageSizes
	c.Layouts = []scene.Layout{scene.LayoutGrid, scene.LayoutSpiral}
	return c
}

// GetConfig returns public configuration for the frontend.
func (a *API) GetConfig(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.cfg.Public.withDefaults())
}
