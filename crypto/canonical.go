package crypto

import (
	"bytes"
	"encoding/binary"
)

// canonicalVersion is the leading byte of every CanonicalEncode output.
// Bump it, and only it, if the field vocabulary or ordering below ever
// changes: this encoding is part of the wire protocol, not an
// implementation detail, since quote enquiry signatures and
// mint-authorization signatures are verified against it.
const canonicalVersion byte = 1

// CanonicalEncodable is any struct that can be Schnorr-signed: it
// reports its own fields, in struct declaration order, as
// CanonicalValues for CanonicalEncode to serialize.
type CanonicalEncodable interface {
	CanonicalFields() []CanonicalValue
}

// CanonicalValue is one struct field's canonical wire representation.
type CanonicalValue interface {
	encodeCanonical(buf *bytes.Buffer)
}

// CanonicalEncode produces the single, versioned, deterministic binary
// encoding every Schnorr-signed message in this repo is built from:
// a version byte, then each of v's fields in declaration order,
// integers big-endian fixed-width, byte strings uvarint length-prefixed.
func CanonicalEncode(v CanonicalEncodable) []byte {
	var buf bytes.Buffer
	buf.WriteByte(canonicalVersion)
	for _, field := range v.CanonicalFields() {
		field.encodeCanonical(&buf)
	}
	return buf.Bytes()
}

type canonicalUint64 uint64

func (v canonicalUint64) encodeCanonical(buf *bytes.Buffer) {
	binary.Write(buf, binary.BigEndian, uint64(v))
}

// CanonicalUint64 wraps a uint64 struct field for CanonicalEncode.
func CanonicalUint64(v uint64) CanonicalValue { return canonicalUint64(v) }

type canonicalInt64 int64

func (v canonicalInt64) encodeCanonical(buf *bytes.Buffer) {
	binary.Write(buf, binary.BigEndian, int64(v))
}

// CanonicalInt64 wraps an int64 struct field for CanonicalEncode.
func CanonicalInt64(v int64) CanonicalValue { return canonicalInt64(v) }

type canonicalBytes []byte

func (v canonicalBytes) encodeCanonical(buf *bytes.Buffer) {
	writeCanonicalLen(buf, len(v))
	buf.Write(v)
}

// CanonicalBytes wraps a length-prefixed byte-string struct field for
// CanonicalEncode.
func CanonicalBytes(v []byte) CanonicalValue { return canonicalBytes(v) }

type canonicalString string

func (v canonicalString) encodeCanonical(buf *bytes.Buffer) {
	canonicalBytes(v).encodeCanonical(buf)
}

// CanonicalString wraps a length-prefixed string struct field for
// CanonicalEncode.
func CanonicalString(v string) CanonicalValue { return canonicalString(v) }

type canonicalStrings []string

func (v canonicalStrings) encodeCanonical(buf *bytes.Buffer) {
	writeCanonicalLen(buf, len(v))
	for _, s := range v {
		canonicalString(s).encodeCanonical(buf)
	}
}

// CanonicalStrings wraps a length-prefixed list-of-strings struct field
// for CanonicalEncode.
func CanonicalStrings(v []string) CanonicalValue { return canonicalStrings(v) }

func writeCanonicalLen(buf *bytes.Buffer, n int) {
	var tmp [binary.MaxVarintLen64]byte
	l := binary.PutUvarint(tmp[:], uint64(n))
	buf.Write(tmp[:l])
}
