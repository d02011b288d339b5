package main

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/cashu/nuts/nut11"
	"github.com/wildcat-ecash/backoffice/internal/httpapi"
	"github.com/wildcat-ecash/backoffice/internal/obs"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/keys"
	"github.com/wildcat-ecash/backoffice/keystore"
)

type handler struct {
	svc   *keys.Service
	store keystore.Store
	log   *obs.Logf
}

type keysetKeys struct {
	Id   string            `json:"id"`
	Unit string            `json:"unit"`
	Keys map[string]string `json:"keys"`
}

type keysResponse struct {
	Keysets []keysetKeys `json:"keysets"`
}

func toKeysetKeys(rec keystore.KeysetRecord) keysetKeys {
	keysOut := make(map[string]string, len(rec.Keys))
	for amount, pair := range rec.Keys {
		keysOut[strconv.FormatUint(amount, 10)] = hex.EncodeToString(pair.PublicKey.SerializeCompressed())
	}
	return keysetKeys{Id: rec.Id, Unit: rec.Unit, Keys: keysOut}
}

func (h *handler) getInfo(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, h.svc.Info("wildcat back-office", "", "dev"))
}

// getKeys replies with the public keys of every active keyset (NUT-01).
func (h *handler) getKeys(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListKeysets()
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	out := keysResponse{}
	for _, rec := range recs {
		if rec.Active {
			out.Keysets = append(out.Keysets, toKeysetKeys(rec))
		}
	}
	httpapi.WriteJSON(w, http.StatusOK, out)
}

func (h *handler) getKeysByKeyset(w http.ResponseWriter, r *http.Request) {
	kid := mux.Vars(r)["kid"]
	rec, err := h.svc.Keyset(kid)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, keysResponse{Keysets: []keysetKeys{toKeysetKeys(rec)}})
}

type keysetInfo struct {
	Id          string     `json:"id"`
	Unit        string     `json:"unit"`
	Active      bool       `json:"active"`
	ValidFrom   time.Time  `json:"valid_from"`
	FinalExpiry *time.Time `json:"final_expiry,omitempty"`
}

func toKeysetInfo(rec keystore.KeysetRecord) keysetInfo {
	return keysetInfo{Id: rec.Id, Unit: rec.Unit, Active: rec.Active, ValidFrom: rec.ValidFrom, FinalExpiry: rec.FinalExpiry}
}

func (h *handler) getKeysets(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListKeysets()
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	out := make([]keysetInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toKeysetInfo(rec))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"keysets": out})
}

func (h *handler) getKeyset(w http.ResponseWriter, r *http.Request) {
	kid := mux.Vars(r)["kid"]
	rec, err := h.svc.Keyset(kid)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toKeysetInfo(rec))
}

type restoreRequest struct {
	Outputs cashu.BlindedMessages `json:"outputs"`
}

type restoreResponse struct {
	Outputs    cashu.BlindedMessages  `json:"outputs"`
	Signatures cashu.BlindedSignatures `json:"signatures"`
}

func (h *handler) restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	entries, err := h.svc.Restore(req.Outputs)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	resp := restoreResponse{}
	for _, e := range entries {
		resp.Outputs = append(resp.Outputs, e.Message)
		resp.Signatures = append(resp.Signatures, e.Signature)
	}
	httpapi.WriteJSON(w, http.StatusOK, resp)
}

type mintEbillRequest struct {
	QuoteId   string                `json:"quote_id"`
	Outputs   cashu.BlindedMessages `json:"outputs"`
	Signature string                `json:"signature"`
}

func (h *handler) mintEbill(w http.ResponseWriter, r *http.Request) {
	var req mintEbillRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	quoteId, err := uuid.Parse(req.QuoteId)
	if err != nil {
		httpapi.WriteError(w, wcerr.New(wcerr.InvalidRequest, "invalid quote id"))
		return
	}
	sig, err := nut11.ParseSignature(req.Signature)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	sigs, err := h.svc.Mint(quoteId, req.Outputs, sig)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"signatures": sigs})
}

type adminSignRequest struct {
	Message cashu.BlindedMessage `json:"message"`
}

func (h *handler) adminSign(w http.ResponseWriter, r *http.Request) {
	var req adminSignRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	sig, err := h.svc.SignBlind(req.Message)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, sig)
}

type adminVerifyRequest struct {
	Proof cashu.Proof `json:"proof"`
}

func (h *handler) adminVerify(w http.ResponseWriter, r *http.Request) {
	var req adminVerifyRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if err := h.svc.VerifyProof(req.Proof); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

type keysetIdRequest struct {
	KeysetId string `json:"keyset_id"`
}

func (h *handler) adminActivate(w http.ResponseWriter, r *http.Request) {
	var req keysetIdRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if err := h.svc.Activate(req.KeysetId); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, nil)
}

func (h *handler) adminDeactivate(w http.ResponseWriter, r *http.Request) {
	var req keysetIdRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if err := h.svc.Deactivate(req.KeysetId); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, nil)
}

type adminGenerateRequest struct {
	QuoteId      string    `json:"quote_id"`
	Amount       uint64    `json:"amount"`
	AuthorizedPk string    `json:"authorized_public_key"`
	Expire       time.Time `json:"expire"`
}

func (h *handler) adminGenerate(w http.ResponseWriter, r *http.Request) {
	var req adminGenerateRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	quoteId, err := uuid.Parse(req.QuoteId)
	if err != nil {
		httpapi.WriteError(w, wcerr.New(wcerr.InvalidRequest, "invalid quote id"))
		return
	}
	pk, err := nut11.ParsePublicKey(req.AuthorizedPk)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	keysetId, err := h.svc.Generate(quoteId, req.Amount, pk, req.Expire)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"keyset_id": keysetId})
}

type adminPreSignRequest struct {
	QuoteId string               `json:"quote_id"`
	Message cashu.BlindedMessage `json:"message"`
}

func (h *handler) adminPreSign(w http.ResponseWriter, r *http.Request) {
	var req adminPreSignRequest
	if err := httpapi.DecodeBody(r, &req); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	quoteId, err := uuid.Parse(req.QuoteId)
	if err != nil {
		httpapi.WriteError(w, wcerr.New(wcerr.InvalidRequest, "invalid quote id"))
		return
	}
	sig, err := h.svc.PreSign(quoteId, req.Message)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, sig)
}
