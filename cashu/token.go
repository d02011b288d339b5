package cashu

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Token is the CBOR-encoded Token-V4-shaped envelope the wallet
// aggregator hands back to a caller that wants a portable bundle of
// proofs rather than a live balance query: one set of proofs per
// keyset, tagged with the service URL and unit they were issued
// against. Mirrors the teacher's TokenV4/TokenV4Proof split, narrowed
// to the hex-string Proof this repo already uses on the wire (the
// teacher's raw-byte variant exists only to minimize CBOR size, which
// this aggregator, built for operator inspection rather than wallet
// QR codes, does not need).
type Token struct {
	TokenProofs []TokenProofs `json:"t"`
	Memo        string        `json:"d,omitempty"`
	ServiceURL  string        `json:"m"`
	Unit        string        `json:"u"`
}

type TokenProofs struct {
	Id     string `json:"i"`
	Proofs Proofs `json:"p"`
}

// NewToken groups proofs by keyset id into a Token for serviceURL/unit.
func NewToken(proofs Proofs, serviceURL string, unit Unit) (Token, error) {
	if len(proofs) == 0 {
		return Token{}, errors.New("cannot build a token from zero proofs")
	}

	byKeyset := make(map[string]Proofs)
	var order []string
	for _, p := range proofs {
		if _, seen := byKeyset[p.Id]; !seen {
			order = append(order, p.Id)
		}
		byKeyset[p.Id] = append(byKeyset[p.Id], p)
	}

	grouped := make([]TokenProofs, 0, len(order))
	for _, id := range order {
		grouped = append(grouped, TokenProofs{Id: id, Proofs: byKeyset[id]})
	}

	return Token{TokenProofs: grouped, ServiceURL: serviceURL, Unit: unit.String()}, nil
}

func (t Token) Proofs() Proofs {
	var out Proofs
	for _, tp := range t.TokenProofs {
		out = append(out, tp.Proofs...)
	}
	return out
}

func (t Token) Amount() uint64 {
	return t.Proofs().Amount()
}

const tokenPrefix = "wcatB"

// Serialize renders the token as "wcatB" + url-safe-base64(cbor(t)), the
// same cashuB-style envelope the teacher's Serialize produces, under a
// prefix naming this repo's own token family rather than cashu's.
func (t Token) Serialize() (string, error) {
	raw, err := cbor.Marshal(t)
	if err != nil {
		return "", err
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

var ErrInvalidToken = errors.New("invalid token")

func DecodeToken(s string) (Token, error) {
	if !strings.HasPrefix(s, tokenPrefix) {
		return Token{}, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(s, tokenPrefix))
	if err != nil {
		return Token{}, ErrInvalidToken
	}
	var t Token
	if err := cbor.Unmarshal(raw, &t); err != nil {
		return Token{}, ErrInvalidToken
	}
	return t, nil
}
