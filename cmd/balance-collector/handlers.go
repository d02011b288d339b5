package main

import (
	"net/http"
	"time"

	"github.com/wildcat-ecash/backoffice/collector"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
)

type handler struct {
	svc *collector.Service
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, wcerr.New(wcerr.InvalidRequest, "invalid or missing 'from' query parameter")
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, wcerr.New(wcerr.InvalidRequest, "invalid or missing 'to' query parameter")
	}
	return from, to, nil
}

func (h *handler) crsatChart(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	chart, err := h.svc.CrsatChart(from, to)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, chart)
}

func (h *handler) satChart(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	chart, err := h.svc.SatChart(from, to)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, chart)
}

func (h *handler) onchainChart(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	chart, err := h.svc.OnchainChart(from, to)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, chart)
}

func (h *handler) eiouChart(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	chart, err := h.svc.EIOUChart(from, to)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, chart)
}
