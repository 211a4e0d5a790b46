// Package per implements the subset of ASN.1 Basic Packed Encoding Rules
// (ALIGNED variant, ITU-T X.691) needed to encode and decode the RANAP
// messages in encoding/ranap. It is not a general-purpose PER codec: like
// the rest of this pack's 3GPP codecs, it hand-encodes the constrained
// INTEGER/ENUMERATED/CHOICE/SEQUENCE/BIT STRING/OCTET STRING shapes that
// RANAP actually uses and leaves the remainder unimplemented.
package per

import (
	"fmt"
	"math/bits"
)

// BitField is a bit-packed value: Value holds the bytes (MSB-first, unused
// trailing bits zeroed) and Len the number of significant bits. Multiple
// BitFields are concatenated with MergeBitField before being flushed to a
// byte-aligned PDU.
type BitField struct {
	Value []byte
	Len   int
}

// ShiftLeft left-shifts the bits in b by n bits, dropping the top n bits and
// padding with zero at the bottom. Len is unchanged; callers adjust it.
func ShiftLeft(b BitField, n int) BitField {
	out := make([]byte, len(b.Value))
	copy(out, b.Value)
	for i := 0; i < n; i++ {
		carry := byte(0)
		for m := len(out) - 1; m >= 0; m-- {
			next := byte(0)
			if out[m]&0x80 != 0 {
				next = 1
			}
			out[m] = (out[m] << 1) | carry
			carry = next
		}
	}
	return BitField{Value: out, Len: b.Len}
}

// ShiftLeftMost packs b so its Len significant bits start at the MSB of
// Value[0], trimming Value to the minimum number of octets.
func ShiftLeftMost(b BitField) BitField {
	if b.Len == 0 {
		return BitField{}
	}
	full := len(b.Value) * 8
	out := ShiftLeft(b, full-b.Len)
	octets := (b.Len-1)/8 + 1
	out.Value = out.Value[:octets]
	return out
}

// MergeBitField packs b2 immediately after b1's significant bits, as PER
// ALIGNED requires for preamble/short fields that are not themselves octet
// aligned (e.g. a CHOICE index followed by a SEQUENCE preamble).
func MergeBitField(b1, b2 BitField) BitField {
	if b1.Len == 0 {
		return b2
	}
	if b2.Len == 0 {
		return b1
	}
	a, b := b1, b2

	totalLen := a.Len + b.Len
	totalOctets := (totalLen-1)/8 + 1
	out := make([]byte, totalOctets+1)
	copy(out, a.Value[:(a.Len-1)/8+1])

	shift := uint(a.Len % 8)
	offsetOctet := a.Len / 8
	for i, v := range b.Value[:(b.Len-1)/8+1] {
		out[offsetOctet+i] |= v >> shift
		if shift > 0 {
			out[offsetOctet+i+1] |= v << (8 - shift)
		}
	}
	out = out[:totalOctets]
	return BitField{Value: out, Len: totalLen}
}

// EncConstrainedWholeNumber encodes input as an unsigned whole number
// constrained to [min,max], X.691 clause 10.5.
func EncConstrainedWholeNumber(input, min, max int) (b BitField, err error) {
	if input < min || input > max {
		err = fmt.Errorf("per: value %d out of range [%d,%d]", input, min, max)
		return
	}
	span := max - min
	v := input - min
	if span == 0 {
		return BitField{}, nil
	}
	nbits := bits.Len(uint(span))
	if nbits == 0 {
		nbits = 1
	}
	nbytes := (nbits-1)/8 + 1
	out := make([]byte, nbytes)
	vv := uint(v)
	for i := nbytes - 1; i >= 0; i-- {
		out[i] = byte(vv)
		vv >>= 8
	}
	b = ShiftLeftMost(BitField{Value: out, Len: nbits})
	return
}

// EncLengthDeterminant encodes a PER length determinant, X.691 clause 10.9.
// Only the short form (<128) is supported, matching the bounded message
// sizes RANAP uses over SUA.
func EncLengthDeterminant(input, max int) (b BitField, err error) {
	if input >= 128 {
		err = fmt.Errorf("per: length %d exceeds short-form limit", input)
		return
	}
	b = BitField{Value: []byte{byte(input)}, Len: 8}
	return
}

// DecLengthDeterminant reads a short-form length determinant from the front
// of pdu, consuming it.
func DecLengthDeterminant(pdu *[]byte, max int) (length int, err error) {
	if len(*pdu) < 1 {
		err = fmt.Errorf("per: no bytes left for length determinant")
		return
	}
	length = int((*pdu)[0])
	*pdu = (*pdu)[1:]
	return
}

// EncInteger encodes a constrained INTEGER (X.691 clause 12).
func EncInteger(input int64, min, max int64, extmark bool) (b BitField, err error) {
	v, err := EncConstrainedWholeNumber(int(input), int(min), int(max))
	if err != nil {
		return
	}
	if extmark {
		ext := BitField{Value: []byte{0}, Len: 1}
		v = MergeBitField(ext, v)
	}
	b = v
	return
}

// EncEnumerated encodes an ENUMERATED value (X.691 clause 13).
func EncEnumerated(input uint, min, max int, extmark bool) (b BitField, err error) {
	v, err := EncConstrainedWholeNumber(int(input), min, max)
	if err != nil {
		return
	}
	if extmark {
		ext := BitField{Value: []byte{0}, Len: 1}
		v = MergeBitField(ext, v)
	}
	b = v
	return
}

// EncChoice encodes a CHOICE index (X.691 clause 23).
func EncChoice(input, min, max int, extmark bool) (b BitField, err error) {
	v, err := EncConstrainedWholeNumber(input, min, max)
	if err != nil {
		return
	}
	if extmark {
		ext := BitField{Value: []byte{0}, Len: 1}
		v = MergeBitField(ext, v)
	}
	b = v
	return
}

// EncSequence encodes a SEQUENCE preamble: one extension bit (if extmark)
// followed by one presence bit per optional/default component, ordered from
// optflag's high bit down, X.691 clause 19.
func EncSequence(extmark bool, optnum int, optflag uint) (b BitField, err error) {
	if optnum > 32 {
		err = fmt.Errorf("per: too many optional fields (%d)", optnum)
		return
	}
	if optnum == 0 {
		if extmark {
			b = BitField{Value: []byte{0}, Len: 1}
		}
		return
	}
	val := optflag << (32 - uint(optnum))
	tmp := make([]byte, 4)
	tmp[0] = byte(val >> 24)
	tmp[1] = byte(val >> 16)
	tmp[2] = byte(val >> 8)
	tmp[3] = byte(val)
	b = BitField{Value: tmp, Len: optnum}
	if extmark {
		ext := BitField{Value: []byte{0}, Len: 1}
		b = MergeBitField(ext, b)
	}
	return
}

// EncSequenceOf encodes the element count of a SEQUENCE OF/SET OF with a
// constrained size, X.691 clause 19 reduced to the small, fixed-bound case
// RANAP's protocol-IE containers and setup lists use.
func EncSequenceOf(num uint, min, max int, extmark bool) (b BitField, err error) {
	return EncConstrainedWholeNumber(int(num), min, max)
}

// EncBitString encodes a constrained BIT STRING, X.691 clause 16. The
// returned preamble carries the length bits (when min != max) and cont
// holds the octet-aligned bit content ready to append to the PDU.
func EncBitString(input []byte, inputlen, min, max int, extmark bool) (
	pre BitField, cont []byte, err error) {

	if inputlen < min || (max != 0 && inputlen > max) {
		err = fmt.Errorf("per: bit string length %d out of range [%d,%d]", inputlen, min, max)
		return
	}
	if min != max {
		lenB, lerr := EncConstrainedWholeNumber(inputlen, min, max)
		if lerr != nil {
			err = lerr
			return
		}
		pre = lenB
	}
	octets := (inputlen-1)/8 + 1
	if octets > len(input) {
		octets = len(input)
	}
	cont = append([]byte{}, input[:octets]...)
	return
}

// EncOctetString encodes a constrained OCTET STRING, X.691 clause 17. When
// min==max no length field is emitted (fixed-size string); otherwise a
// length determinant precedes the content.
func EncOctetString(input []byte, min, max int, extmark bool) (
	pre BitField, cont []byte, err error) {

	if min == max && min != 0 {
		cont = append([]byte{}, input...)
		return
	}
	l, lerr := EncLengthDeterminant(len(input), max)
	if lerr != nil {
		err = lerr
		return
	}
	pre = l
	cont = append([]byte{}, input...)
	return
}
