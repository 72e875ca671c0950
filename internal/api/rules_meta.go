package api

import (
	"net/http"

	"github.com/lifinance/solguard/internal/rules"
)

// GET /api/v1/rules (read-only inventory; no auth needed)
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	type R struct {
		ID             string `json:"id"`
		Help           string `json:"help"`
		Impact         string `json:"impact"`
		Confidence     string `json:"confidence"`
		Wiki           string `json:"wiki,omitempty"`
		Title          string `json:"title,omitempty"`
		Description    string `json:"description,omitempty"`
		Recommendation string `json:"recommendation,omitempty"`
	}
	var out []R
	for _, rr := range rules.List() {
		out = append(out, R{
			ID: rr.ID, Help: rr.Help, Impact: rr.Impact, Confidence: rr.Confidence,
			Wiki: rr.Docs.Wiki, Title: rr.Docs.Title,
			Description: rr.Docs.Description, Recommendation: rr.Docs.Recommendation,
		})
	}
	// stable order already guaranteed by rules.List()
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}
