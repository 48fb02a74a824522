package handlers

import (
	"net/http"

	"furnishai-web/internal/config"
	"furnishai-web/internal/models"
)

type InfoHandler struct {
	entries []models.InfoEntry
}

func NewInfoHandler(cfg *config.Config) *InfoHandler {
	return &InfoHandler{entries: InfoEntries(cfg)}
}

// InfoEntries lists the developer details shown on the Info view, skipping
// any that are not configured.
func InfoEntries(cfg *config.Config) []models.InfoEntry {
	all := []models.InfoEntry{
		{Label: "Name", Value: cfg.InfoName},
		{Label: "Roll Number", Value: cfg.InfoRollNumber},
		{Label: "College", Value: cfg.InfoCollege},
		{Label: "Phone", Value: cfg.InfoPhone},
	}
	entries := make([]models.InfoEntry, 0, len(all))
	for _, e := range all {
		if e.Value != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

func (h *InfoHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.entries)
}
