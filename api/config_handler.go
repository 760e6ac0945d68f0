package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/config.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file"` // "" when running on defaults and environment only
}

// handleGetConfig returns the running configuration. The feed user agent
// carries a contact address and is left out of JSON by its tag; the YAML
// form (?format=yaml) masks it.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "yaml" {
		out, err := s.cfg.YAML()
		if err != nil {
			s.log.Error("marshal config", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: s.cfg.File(),
		},
	})
}

// handleGetSettings reports where each key setting comes from.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckSettings(s.cfg),
	})
}
