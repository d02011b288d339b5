package quote

import "github.com/wildcat-ecash/backoffice/crypto"

// CanonicalFields reports BillInfo's fields in declaration order, for
// crypto.CanonicalEncode to serialize. This is the message a bill's
// holder signs at enquire time; any change to the field order or types
// here is a protocol break.
func (b BillInfo) CanonicalFields() []crypto.CanonicalValue {
	return []crypto.CanonicalValue{
		crypto.CanonicalString(b.Id),
		crypto.CanonicalString(b.Drawee),
		crypto.CanonicalString(b.Drawer),
		crypto.CanonicalString(b.Payee),
		crypto.CanonicalStrings(b.Endorsees),
		crypto.CanonicalUint64(b.Sum),
		crypto.CanonicalInt64(b.MaturityDate.Unix()),
		crypto.CanonicalStrings(b.FileURLs),
	}
}

func canonicalBillBytes(b BillInfo) []byte {
	return crypto.CanonicalEncode(b)
}
