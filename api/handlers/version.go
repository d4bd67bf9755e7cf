package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/draup/assetexplorer/api/metrics"
)

var (
	// BuildVersion, BuildCommit, BuildDate are set from main via SetBuildInfo.
	BuildVersion = "dev"
	BuildCommit  = "none"
	BuildDate    = "unknown"
)

// SetBuildInfo records the ldflags build info and publishes it as a metric.
func SetBuildInfo(version, commit, date string) {
	BuildVersion = version
	BuildCommit = commit
	BuildDate = date
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
}

type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func GetVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(VersionResponse{
		Version: BuildVersion,
		Commit:  BuildCommit,
		Date:    BuildDate,
	})
}
