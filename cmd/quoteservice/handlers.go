package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wildcat-ecash/backoffice/cashu/nuts/nut11"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/quote"
)

type handler struct {
	svc *quote.Service
}

type enquireRequest struct {
	Content   quote.BillInfo `json:"content"`
	PublicKey string         `json:"public_key"`
	Signature string         `json:"signature"`
}

// enquire's wire body carries a single public_key: the bill holder's
// own key both verifies the enquiry signature and is stored as the
// mint-authorization key a later accept/mint will require, since the
// holder that submits a bill is the only party this back-office ever
// authorizes to trigger its minting.
func (h *handler) enquire(w http.ResponseWriter, r *http.Request) {
	var req enquireRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	pk, err := nut11.ParsePublicKey(req.PublicKey)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	sig, err := nut11.ParseSignature(req.Signature)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	id, err := h.svc.Enquire(req.Content, pk, sig, pk, time.Now())
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

func parseQuoteId(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, wcerr.New(wcerr.InvalidRequest, "invalid quote id")
	}
	return id, nil
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	id, err := parseQuoteId(r)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	status, err := h.svc.Lookup(id)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, status)
}

type holderResolveRequest struct {
	Accept *struct{} `json:"Accept,omitempty"`
	Reject *struct{} `json:"Reject,omitempty"`
}

func (h *handler) holderResolve(w http.ResponseWriter, r *http.Request) {
	id, err := parseQuoteId(r)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	var req holderResolveRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}

	now := time.Now()
	switch {
	case req.Accept != nil:
		err = h.svc.Accept(id, now)
	case req.Reject != nil:
		err = h.svc.Reject(id, now)
	default:
		err = wcerr.New(wcerr.InvalidRequest, "body must set Accept or Reject")
	}
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, nil)
}

type adminResolveRequest struct {
	Offer *struct {
		Discounted uint64     `json:"discounted"`
		TTL        *time.Time `json:"ttl,omitempty"`
	} `json:"Offer,omitempty"`
	Deny   *struct{} `json:"Deny,omitempty"`
	Cancel *struct{} `json:"Cancel,omitempty"`
}

const defaultOfferTTL = 24 * time.Hour

func (h *handler) adminResolve(w http.ResponseWriter, r *http.Request) {
	id, err := parseQuoteId(r)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	var req adminResolveRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}

	now := time.Now()
	switch {
	case req.Offer != nil:
		ttl := now.Add(defaultOfferTTL)
		if req.Offer.TTL != nil {
			ttl = *req.Offer.TTL
		}
		err = h.svc.Offer(id, req.Offer.Discounted, ttl, now)
	case req.Deny != nil:
		err = h.svc.Deny(id, now)
	case req.Cancel != nil:
		err = h.svc.Cancel(id, now)
	default:
		err = wcerr.New(wcerr.InvalidRequest, "body must set Offer, Deny or Cancel")
	}
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, nil)
}

func parseStatusTag(s string) (quote.StatusTag, bool) {
	switch s {
	case "Pending":
		return quote.Pending, true
	case "Canceled":
		return quote.Canceled, true
	case "Denied":
		return quote.Denied, true
	case "Offered":
		return quote.Offered, true
	case "OfferExpired":
		return quote.OfferExpired, true
	case "Rejected":
		return quote.Rejected, true
	case "Accepted":
		return quote.Accepted, true
	default:
		return 0, false
	}
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filters quote.Filters
	if v := q.Get("drawee"); v != "" {
		filters.Drawee = &v
	}
	if v := q.Get("drawer"); v != "" {
		filters.Drawer = &v
	}
	if v := q.Get("payee"); v != "" {
		filters.Payee = &v
	}
	if v := q.Get("holder_id"); v != "" {
		filters.HolderId = &v
	}
	if v := q.Get("status"); v != "" {
		if tag, ok := parseStatusTag(v); ok {
			filters.Status = &tag
		}
	}
	if v := q.Get("maturity_date_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpapi.WriteError(w, wcerr.New(wcerr.InvalidRequest, "invalid maturity_date_from"))
			return
		}
		filters.MaturityDateFrom = &t
	}
	if v := q.Get("maturity_date_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpapi.WriteError(w, wcerr.New(wcerr.InvalidRequest, "invalid maturity_date_to"))
			return
		}
		filters.MaturityDateTo = &t
	}

	order := quote.SortNone
	switch q.Get("sort") {
	case "BillMaturityDateAsc":
		order = quote.SortMaturityAsc
	case "BillMaturityDateDesc":
		order = quote.SortMaturityDesc
	}

	out, err := h.svc.List(filters, order)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"quotes": out})
}
