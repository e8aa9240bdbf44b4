package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/fpd"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
)

// indicatorResponse is the JSON form of fpd.Settings.
type indicatorResponse struct {
	Indicator  string `json:"indicator"`
	Brightness int    `json:"brightness"`
	State      string `json:"state"`
	Color      string `json:"color"`
}

func newIndicatorResponse(st fpd.Settings) indicatorResponse {
	return indicatorResponse{
		Indicator:  string(st.Indicator),
		Brightness: st.Brightness,
		State:      st.State.String(),
		Color:      st.Color.String(),
	}
}

// indicatorParam parses the {indicator} path parameter. It writes a 404 and
// returns false for an unknown name.
func indicatorParam(w http.ResponseWriter, r *http.Request) (hal.Indicator, bool) {
	ind, err := hal.ParseIndicator(chi.URLParam(r, "indicator"))
	if err != nil {
		writeNotFound(w, err.Error())
		return "", false
	}
	return ind, true
}

// handleListIndicators returns the settings of every managed indicator.
func (s *Server) handleListIndicators(w http.ResponseWriter, r *http.Request) {
	inds := s.fpd.Indicators()
	settings := make([]indicatorResponse, 0, len(inds))
	for _, ind := range inds {
		st, err := s.fpd.Settings(r.Context(), ind)
		if err != nil {
			writeFacetError(w, err)
			return
		}
		settings = append(settings, newIndicatorResponse(st))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"indicators":    settings,
		"count":         len(settings),
		"time_format":   s.fpd.GetTimeFormat(r.Context()).String(),
		"clock_display": s.fpd.ClockDisplay(),
	})
}

// handleGetIndicator returns every setting of one indicator.
func (s *Server) handleGetIndicator(w http.ResponseWriter, r *http.Request) {
	ind, ok := indicatorParam(w, r)
	if !ok {
		return
	}
	st, err := s.fpd.Settings(r.Context(), ind)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newIndicatorResponse(st))
}

// handleGetBrightness returns the brightness of one indicator.
func (s *Server) handleGetBrightness(w http.ResponseWriter, r *http.Request) {
	ind, ok := indicatorParam(w, r)
	if !ok {
		return
	}
	v, err := s.fpd.GetBrightness(r.Context(), ind)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"indicator": ind, "brightness": v})
}

// handleSetBrightness sets the brightness of one indicator.
//
// Request body: {"brightness": 0-100, "persist": true}
// The value is persisted unless persist is explicitly false.
func (s *Server) handleSetBrightness(w http.ResponseWriter, r *http.Request) {
	ind, ok := indicatorParam(w, r)
	if !ok {
		return
	}
	var req brightnessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	persistent := req.Persist == nil || *req.Persist
	if err := s.fpd.SetBrightness(r.Context(), ind, *req.Brightness, persistent); err != nil {
		writeFacetError(w, err)
		return
	}
	s.recordChange(fpd.Name, string(ind), "brightness", *req.Brightness)
	writeJSON(w, http.StatusOK, map[string]any{"indicator": ind, "brightness": *req.Brightness})
}

// handleGetState returns whether one indicator is lit.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	ind, ok := indicatorParam(w, r)
	if !ok {
		return
	}
	st, err := s.fpd.GetState(r.Context(), ind)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"indicator": ind, "state": st.String()})
}

// handleSetState turns one indicator on or off.
//
// Request body: {"state": "ON" | "OFF"}
func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	ind, ok := indicatorParam(w, r)
	if !ok {
		return
	}
	var req stateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := hal.ParseIndicatorState(req.State)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	if err := s.fpd.SetState(r.Context(), ind, st); err != nil {
		writeFacetError(w, err)
		return
	}
	s.recordChange(fpd.Name, string(ind), "state", st.String())
	writeJSON(w, http.StatusOK, map[string]any{"indicator": ind, "state": st.String()})
}

// handleGetColor returns the color of one indicator.
func (s *Server) handleGetColor(w http.ResponseWriter, r *http.Request) {
	ind, ok := indicatorParam(w, r)
	if !ok {
		return
	}
	c, err := s.fpd.GetColor(r.Context(), ind)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"indicator": ind, "color": c.String()})
}

// handleSetColor sets the color of one indicator.
//
// Request body: {"color": "#RRGGBB"}
func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	ind, ok := indicatorParam(w, r)
	if !ok {
		return
	}
	var req colorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := hal.ParseColor(req.Color)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	if err := s.fpd.SetColor(r.Context(), ind, c); err != nil {
		writeFacetError(w, err)
		return
	}
	s.recordChange(fpd.Name, string(ind), "color", c.String())
	writeJSON(w, http.StatusOK, map[string]any{"indicator": ind, "color": c.String()})
}

// handleGetTimeFormat returns the clock format.
func (s *Server) handleGetTimeFormat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"format": s.fpd.GetTimeFormat(r.Context()).String()})
}

// handleSetTimeFormat sets and persists the clock format.
//
// Request body: {"format": "12_HOUR" | "24_HOUR"}
func (s *Server) handleSetTimeFormat(w http.ResponseWriter, r *http.Request) {
	var req timeFormatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	f, err := hal.ParseTimeFormat(req.Format)
	if err != nil {
		writeFacetError(w, err)
		return
	}
	if err := s.fpd.SetTimeFormat(r.Context(), f); err != nil {
		writeFacetError(w, err)
		return
	}
	s.recordChange(fpd.Name, "clock", "timeformat", f.String())
	writeJSON(w, http.StatusOK, map[string]any{"format": f.String()})
}

// handleSetClockDisplay shows or hides the clock.
//
// Request body: {"enabled": true | false}
func (s *Server) handleSetClockDisplay(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.fpd.SetClockDisplay(r.Context(), *req.Enabled); err != nil {
		writeFacetError(w, err)
		return
	}
	s.recordChange(fpd.Name, "clock", "display", *req.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{"enabled": *req.Enabled})
}
