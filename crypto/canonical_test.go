package crypto

import (
	"encoding/hex"
	"testing"
)

type canonicalFixture struct {
	name string
	tags []string
}

func (f canonicalFixture) CanonicalFields() []CanonicalValue {
	return []CanonicalValue{
		CanonicalString(f.name),
		CanonicalStrings(f.tags),
		CanonicalUint64(1000),
		CanonicalInt64(-1),
	}
}

func TestCanonicalEncodeDeterministic(t *testing.T) {
	a := canonicalFixture{name: "bill-1", tags: []string{"drawee", "drawer"}}
	b := canonicalFixture{name: "bill-1", tags: []string{"drawee", "drawer"}}

	encA := CanonicalEncode(a)
	encB := CanonicalEncode(b)
	if hex.EncodeToString(encA) != hex.EncodeToString(encB) {
		t.Fatalf("expected identical encodings for identical fields, got %x and %x", encA, encB)
	}

	if encA[0] != canonicalVersion {
		t.Errorf("expected leading version byte %d, got %d", canonicalVersion, encA[0])
	}
}

func TestCanonicalEncodeDistinguishesFields(t *testing.T) {
	a := canonicalFixture{name: "bill-1", tags: []string{"drawee"}}
	b := canonicalFixture{name: "bill-2", tags: []string{"drawee"}}

	if hex.EncodeToString(CanonicalEncode(a)) == hex.EncodeToString(CanonicalEncode(b)) {
		t.Error("expected different field values to produce different encodings")
	}
}

func TestCanonicalEncodeLengthPrefixesStrings(t *testing.T) {
	// two adjacent strings whose naive concatenation would collide
	// ("ab"+"c" == "a"+"bc") must still encode distinctly once each
	// string carries its own length prefix.
	first := canonicalFixture{name: "ab", tags: []string{"c"}}
	second := canonicalFixture{name: "a", tags: []string{"bc"}}

	if hex.EncodeToString(CanonicalEncode(first)) == hex.EncodeToString(CanonicalEncode(second)) {
		t.Error("expected length-prefixing to prevent field-boundary collisions")
	}
}
