// Package nut09 lets a wallet recover blind signatures it lost track
// of, by replaying the same blinded messages it originally sent.
package nut09

import "github.com/wildcat-ecash/backoffice/cashu"

type PostRestoreRequest struct {
	Outputs cashu.BlindedMessages `json:"outputs"`
}

type PostRestoreResponse struct {
	Outputs    cashu.BlindedMessages   `json:"outputs"`
	Signatures cashu.BlindedSignatures `json:"signatures"`
}
