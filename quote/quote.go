// Package quote is the QuoteService: the per-e-bill state machine that
// carries a credit quote from intake through an operator's offer to a
// holder's acceptance, orchestrating KeyService (keyset generation and
// activation) and TreasuryCore (pre-minted blinded messages and their
// signatures) along the way.
package quote

import (
	"time"

	"github.com/google/uuid"

	"github.com/wildcat-ecash/backoffice/cashu"
)

// StatusTag is the quote's state machine tag. Only the transitions in
// the table below are legal; anything else fails QuoteAlreadyResolved.
//
//	Pending  -> Canceled | Denied | Offered
//	Offered  -> Accepted | Rejected | OfferExpired
type StatusTag int

const (
	Pending StatusTag = iota
	Canceled
	Denied
	Offered
	OfferExpired
	Rejected
	Accepted
)

func (t StatusTag) String() string {
	switch t {
	case Pending:
		return "Pending"
	case Canceled:
		return "Canceled"
	case Denied:
		return "Denied"
	case Offered:
		return "Offered"
	case OfferExpired:
		return "OfferExpired"
	case Rejected:
		return "Rejected"
	case Accepted:
		return "Accepted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the tag admits no further transition.
func (t StatusTag) Terminal() bool {
	switch t {
	case Canceled, Denied, OfferExpired, Rejected, Accepted:
		return true
	default:
		return false
	}
}

// Status is the quote's tagged status variant. Only the fields that
// apply to Tag are meaningful; the zero value of the rest is ignored.
type Status struct {
	Tag StatusTag

	// Pending
	AuthorizedPubkey string

	// Canceled / Denied / OfferExpired / Rejected
	At time.Time

	// Offered / Accepted
	KeysetId string

	// Offered
	TTL time.Time

	// Offered / OfferExpired / Rejected / Accepted
	Discounted uint64
}

// BillInfo is the e-bill a quote is drawn against.
type BillInfo struct {
	Id           string
	Drawee       string
	Drawer       string
	Payee        string
	Endorsees    []string
	Sum          uint64
	MaturityDate time.Time
	FileURLs     []string
}

// Holder is the bill's current holder: the last endorsee, or the
// payee if it has never been endorsed.
func (b BillInfo) Holder() string {
	if len(b.Endorsees) > 0 {
		return b.Endorsees[len(b.Endorsees)-1]
	}
	return b.Payee
}

// PendingMint carries the treasury request a quote's Offered state
// opened, so Accept can replay it: the blinded messages Treasury
// pre-issued against the keyset, and the request id to report
// signatures back under.
type PendingMint struct {
	RequestId       string
	BlindedMessages cashu.BlindedMessages
}

// Quote is one e-bill's credit-quote lifecycle record.
type Quote struct {
	Id          uuid.UUID
	Bill        BillInfo
	Submitted   time.Time
	Status      Status
	PendingMint *PendingMint
}

// LightQuote is the reduced listing projection: enough to filter,
// sort and display without shipping every bill field.
type LightQuote struct {
	Id           uuid.UUID
	BillId       string
	Drawee       string
	Drawer       string
	Payee        string
	Holder       string
	Sum          uint64
	MaturityDate time.Time
	Status       Status
}

func toLight(q Quote) LightQuote {
	return LightQuote{
		Id:           q.Id,
		BillId:       q.Bill.Id,
		Drawee:       q.Bill.Drawee,
		Drawer:       q.Bill.Drawer,
		Payee:        q.Bill.Payee,
		Holder:       q.Bill.Holder(),
		Sum:          q.Bill.Sum,
		MaturityDate: q.Bill.MaturityDate,
		Status:       q.Status,
	}
}

// SortOrder governs List's ordering; the zero value is insertion order.
type SortOrder int

const (
	SortNone SortOrder = iota
	SortMaturityAsc
	SortMaturityDesc
)

// Filters narrows List's result set. A nil/zero field is unconstrained.
type Filters struct {
	MaturityDateFrom *time.Time
	MaturityDateTo   *time.Time
	Status           *StatusTag
	Drawee           *string
	Drawer           *string
	Payee            *string
	HolderId         *string
}

func (f Filters) match(q Quote) bool {
	if f.MaturityDateFrom != nil && q.Bill.MaturityDate.Before(*f.MaturityDateFrom) {
		return false
	}
	if f.MaturityDateTo != nil && q.Bill.MaturityDate.After(*f.MaturityDateTo) {
		return false
	}
	if f.Status != nil && q.Status.Tag != *f.Status {
		return false
	}
	if f.Drawee != nil && q.Bill.Drawee != *f.Drawee {
		return false
	}
	if f.Drawer != nil && q.Bill.Drawer != *f.Drawer {
		return false
	}
	if f.Payee != nil && q.Bill.Payee != *f.Payee {
		return false
	}
	if f.HolderId != nil && q.Bill.Holder() != *f.HolderId {
		return false
	}
	return true
}
