// Package nut02 is the wire shape of a keyset's public listing: id,
// unit and whether it is presently active.
package nut02

type GetKeysetsResponse struct {
	Keysets []KeysetInfo `json:"keysets"`
}

type KeysetInfo struct {
	Id     string `json:"id"`
	Unit   string `json:"unit"`
	Active bool   `json:"active"`
}
