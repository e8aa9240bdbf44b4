package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-devicesettings/internal/audit"
)

// handleListChanges returns paginated setting changes with optional filters.
//
// Query parameters:
//   - facet: filter by facet (hdmiin, fpd)
//   - target: filter by port or indicator (HDMI0, power, clock)
//   - attribute: filter by attribute name
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Facet:     q.Get("facet"),
		Target:    q.Get("target"),
		Attribute: q.Get("attribute"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.changes.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list setting changes", "error", err)
		writeInternalError(w, "failed to list setting changes")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
