package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/hdmiin"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
)

// portStatusResponse is the JSON form of hdmiin.PortStatus.
type portStatusResponse struct {
	Port        string `json:"port"`
	Connected   bool   `json:"connected"`
	Signal      string `json:"signal"`
	EdidVersion string `json:"edid_version"`
	AllmSupport bool   `json:"allm_support"`
	VRRSupport  bool   `json:"vrr_support"`
	AllmActive  bool   `json:"allm_active"`
	VRR         string `json:"vrr"`
}

func newPortStatusResponse(st hdmiin.PortStatus) portStatusResponse {
	return portStatusResponse{
		Port:        st.Port.String(),
		Connected:   st.Connected,
		Signal:      st.Signal.String(),
		EdidVersion: st.EdidVersion.String(),
		AllmSupport: st.AllmSupport,
		VRRSupport:  st.VRRSupport,
		AllmActive:  st.AllmActive,
		VRR:         st.VRR.String(),
	}
}

// portParam parses the {port} path parameter. It writes a 404 and returns
// false when the parameter is not a port name.
func portParam(w http.ResponseWriter, r *http.Request) (hal.Port, bool) {
	port, err := hal.ParsePort(chi.URLParam(r, "port"))
	if err != nil {
		writeNotFound(w, err.Error())
		return 0, false
	}
	return port, true
}

// handleListPorts returns the status of every managed input.
func (s *Server) handleListPorts(w http.ResponseWriter, r *http.Request) {
	ports := s.hdmiin.Ports()
	statuses := make([]portStatusResponse, 0, len(ports))
	for _, port := range ports {
		st, err := s.hdmiin.Status(r.Context(), port)
		if err != nil {
			writeFacetError(w, err)
			return
		}
		statuses = append(statuses, newPortStatusResponse(st))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ports":           statuses,
		"count":           len(statuses),
		"reassert_policy": string(s.hdmiin.Policy()),
	})
}

// handleGetPortStatus returns a snapshot of one input.
func (s *Server) handleGetPortStatus(w http.ResponseWriter, r *http.Request) {
	port, ok := portParam(w, r)
	if !ok {
		return
	}
	st, err := s.hdmiin.Status(r.Context(), port)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPortStatusResponse(st))
}

// handleGetEdidVersion returns the EDID version of one input.
func (s *Server) handleGetEdidVersion(w http.ResponseWriter, r *http.Request) {
	port, ok := portParam(w, r)
	if !ok {
		return
	}
	v, err := s.hdmiin.GetEdidVersion(r.Context(), port)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"port": port.String(), "version": v.String()})
}

// handleSetEdidVersion sets and persists the EDID version of one input.
//
// Request body: {"version": "1.4" | "2.0"}
func (s *Server) handleSetEdidVersion(w http.ResponseWriter, r *http.Request) {
	port, ok := portParam(w, r)
	if !ok {
		return
	}
	var req edidRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v, err := hal.ParseEdidVersion(req.Version)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	if err := s.hdmiin.SetEdidVersion(r.Context(), port, v); err != nil {
		writeFacetError(w, err)
		return
	}
	s.recordChange(hdmiin.Name, port.String(), "edid", v.String())
	writeJSON(w, http.StatusOK, map[string]any{"port": port.String(), "version": v.String()})
}

// handleGetAllmSupport returns the cached ALLM support bit.
func (s *Server) handleGetAllmSupport(w http.ResponseWriter, r *http.Request) {
	port, ok := portParam(w, r)
	if !ok {
		return
	}
	enabled, err := s.hdmiin.GetAllmSupport(port)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"port": port.String(), "enabled": enabled})
}

// handleSetAllmSupport writes the ALLM support bit. Returns 409 unless the
// input advertises EDID 2.0.
//
// Request body: {"enabled": true | false}
func (s *Server) handleSetAllmSupport(w http.ResponseWriter, r *http.Request) {
	port, ok := portParam(w, r)
	if !ok {
		return
	}
	var req supportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.hdmiin.SetAllmSupport(r.Context(), port, *req.Enabled); err != nil {
		writeFacetError(w, err)
		return
	}
	s.recordChange(hdmiin.Name, port.String(), "allm", *req.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{"port": port.String(), "enabled": *req.Enabled})
}

// handleGetVRRSupport returns the cached VRR support bit.
func (s *Server) handleGetVRRSupport(w http.ResponseWriter, r *http.Request) {
	port, ok := portParam(w, r)
	if !ok {
		return
	}
	enabled, err := s.hdmiin.GetVRRSupport(port)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"port": port.String(), "enabled": enabled})
}

// handleSetVRRSupport writes the VRR support bit. Returns 409 unless the
// input advertises EDID 2.0.
//
// Request body: {"enabled": true | false}
func (s *Server) handleSetVRRSupport(w http.ResponseWriter, r *http.Request) {
	port, ok := portParam(w, r)
	if !ok {
		return
	}
	var req supportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.hdmiin.SetVRRSupport(r.Context(), port, *req.Enabled); err != nil {
		writeFacetError(w, err)
		return
	}
	s.recordChange(hdmiin.Name, port.String(), "vrr", *req.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{"port": port.String(), "enabled": *req.Enabled})
}

// handleSelectPort makes one input the presented input.
func (s *Server) handleSelectPort(w http.ResponseWriter, r *http.Request) {
	port, ok := portParam(w, r)
	if !ok {
		return
	}
	if err := s.hdmiin.SelectPort(r.Context(), port); err != nil {
		writeFacetError(w, err)
		return
	}
	s.recordChange(hdmiin.Name, port.String(), "select", port.String())
	writeJSON(w, http.StatusOK, map[string]any{"port": port.String(), "selected": true})
}

// handleGetVideoMode returns the video mode of the presented input.
func (s *Server) handleGetVideoMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hdmiin.VideoMode(r.Context()))
}

// handleGetLatency returns the A/V latency of the presented input.
func (s *Server) handleGetLatency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hdmiin.AVLatency(r.Context()))
}
