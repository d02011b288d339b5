package main

import (
	"bytes"
	"io"
	"net/http"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
)

type handler struct {
	keysURL string
	swapURL string
	client  *http.Client
	log     *obs.Logf
}

// forward replays r against base+r.URL.RequestURI() and copies the
// backend's status and body back verbatim, the thin proxy shape the
// wallet-facing surface needs in place of reimplementing KeyService or
// SwapService's own handlers a second time.
func (h *handler) forward(w http.ResponseWriter, r *http.Request, base string) {
	var body io.Reader
	if r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			httpapi.WriteError(w, wcerr.New(wcerr.InvalidRequest, "reading request body"))
			return
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(r.Method, base+r.URL.RequestURI(), body)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Errorf("proxying %s %s: %v", r.Method, r.URL.Path, err)
		httpapi.WriteError(w, wcerr.New(wcerr.Internal, "upstream request failed"))
		return
	}
	defer resp.Body.Close()

	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (h *handler) proxyKeys(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, h.keysURL)
}

func (h *handler) proxySwap(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, h.swapURL)
}

type tokenEncodeRequest struct {
	Proofs     cashu.Proofs `json:"proofs"`
	ServiceURL string       `json:"service_url"`
	Unit       string       `json:"unit"`
}

func (h *handler) tokenEncode(w http.ResponseWriter, r *http.Request) {
	var req tokenEncodeRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	unit := cashu.CrSat
	if req.Unit == "sat" {
		unit = cashu.Sat
	}
	tok, err := cashu.NewToken(req.Proofs, req.ServiceURL, unit)
	if err != nil {
		httpapi.WriteError(w, wcerr.New(wcerr.InvalidRequest, err.Error()))
		return
	}
	encoded, err := tok.Serialize()
	if err != nil {
		httpapi.WriteError(w, wcerr.New(wcerr.Internal, err.Error()))
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"token": encoded})
}

type tokenDecodeRequest struct {
	Token string `json:"token"`
}

func (h *handler) tokenDecode(w http.ResponseWriter, r *http.Request) {
	var req tokenDecodeRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	tok, err := cashu.DecodeToken(req.Token)
	if err != nil {
		httpapi.WriteError(w, wcerr.New(wcerr.InvalidRequest, err.Error()))
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, tok)
}
