package api

import (
	"net/http"
)

// handleGetDecoderStatus returns the status of the most active A/V decoder.
// The read goes to hardware; the last observed value is returned if that fails.
func (s *Server) handleGetDecoderStatus(w http.ResponseWriter, r *http.Request) {
	status := s.diagnostics.GetAVDecoderStatus(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        status.String(),
		"last_observed": s.diagnostics.LastObserved().String(),
	})
}
