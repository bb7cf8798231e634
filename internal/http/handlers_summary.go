package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"riepilogo/internal/charts"
	"riepilogo/internal/log"
	"riepilogo/internal/summary"
)

// view resolves the mounted view for the request. It writes the error
// response itself and returns nil on failure.
func (s *Server) view(w http.ResponseWriter, r *http.Request) *summary.View {
	owner, err := parseOwner(r, s.defaultOwner)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return nil
	}
	p, err := parseSummaryParams(r.PathValue("kind"), r.URL.Query(), owner)
	if err != nil {
		writeError(w, r, err)
		return nil
	}
	v, err := s.registry.View(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return nil
	}
	return v
}

// settle waits up to summaryWait for an in-flight recompute, unless the
// caller asked for the current state with wait=0.
func (s *Server) settle(r *http.Request, v *summary.View) summary.State {
	switch strings.ToLower(r.URL.Query().Get("wait")) {
	case "0", "false", "no":
		return v.State()
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.summaryWait)
	defer cancel()
	if err := v.Wait(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Summary wait interrupted", log.FieldError, err)
	}
	return v.State()
}

func writeView(w http.ResponseWriter, v *summary.View, st summary.State, status int) {
	if st.Phase == summary.Error && st.Data == nil {
		status = http.StatusServiceUnavailable
	}
	NewResponse().Status(status).JSON(newViewDTO(v.Params(), st)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	if v == nil {
		return
	}
	writeView(w, v, s.settle(r, v), http.StatusOK)
}

// handleRefreshSummary forces a recompute, retrying a view that failed.
func (s *Server) handleRefreshSummary(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	if v == nil {
		return
	}

	var err error
	if v.State().Phase == summary.Error {
		err = v.Retry(context.Background())
		if errors.Is(err, summary.ErrNotFailed) {
			err = v.Refresh()
		}
	} else {
		err = v.Refresh()
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, v, s.settle(r, v), http.StatusAccepted)
}

func (s *Server) handleSummaryChart(w http.ResponseWriter, r *http.Request) {
	kind, err := charts.ParseKind(r.URL.Query().Get("chart"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	v := s.view(w, r)
	if v == nil {
		return
	}

	st := s.settle(r, v)
	if st.Data == nil {
		msg := "summary not ready"
		if st.Err != nil {
			msg = "summary failed: " + st.Err.Error()
		}
		ServiceUnavailableError(msg).Header("Retry-After", "1").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.charts.Render(&buf, kind, st.Data); err != nil {
		if errors.Is(err, charts.ErrNoData) {
			NotFoundError("nothing to chart").Write(w)
			return
		}
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
