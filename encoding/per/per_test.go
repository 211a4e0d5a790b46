package per

import "testing"

func TestEncConstrainedWholeNumber(t *testing.T) {
	b, err := EncConstrainedWholeNumber(5, 0, 255)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Len != 8 || b.Value[0] != 5 {
		t.Fatalf("got %+v, want 1 octet value 5", b)
	}

	if _, err := EncConstrainedWholeNumber(300, 0, 255); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestEncLengthDeterminantRoundTrip(t *testing.T) {
	b, err := EncLengthDeterminant(42, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pdu := append([]byte{}, b.Value...)
	pdu = append(pdu, 0xaa)

	got, err := DecLengthDeterminant(&pdu, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	if len(pdu) != 1 || pdu[0] != 0xaa {
		t.Fatalf("length determinant not consumed: %x", pdu)
	}
}

func TestMergeBitFieldOctetAligned(t *testing.T) {
	a := BitField{Value: []byte{0xf0}, Len: 4}
	b := BitField{Value: []byte{0xf0}, Len: 4}
	out := MergeBitField(a, b)
	if out.Len != 8 {
		t.Fatalf("got len %d, want 8", out.Len)
	}
	if out.Value[0] != 0xff {
		t.Fatalf("got %02x, want ff", out.Value[0])
	}
}

func TestEncOctetStringFixed(t *testing.T) {
	pre, cont, err := EncOctetString([]byte{1, 2, 3}, 3, 3, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pre.Len != 0 {
		t.Fatalf("fixed-size octet string must not emit a length field")
	}
	if len(cont) != 3 {
		t.Fatalf("got %d content bytes, want 3", len(cont))
	}
}

func TestEncOctetStringVariable(t *testing.T) {
	pre, cont, err := EncOctetString([]byte{1, 2, 3, 4}, 0, 10, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pre.Len == 0 {
		t.Fatalf("variable-size octet string must emit a length field")
	}
	if len(cont) != 4 {
		t.Fatalf("got %d content bytes, want 4", len(cont))
	}
}

func TestEncSequencePreamble(t *testing.T) {
	b, err := EncSequence(true, 2, 0x2) // first optional present, second absent
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Len != 3 { // 1 extension bit + 2 optional-presence bits
		t.Fatalf("got len %d, want 3", b.Len)
	}
}

func TestEncSequenceOf(t *testing.T) {
	b, err := EncSequenceOf(5, 1, 256, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Len == 0 {
		t.Fatalf("expected non-empty count field")
	}
}

func TestEncBitString(t *testing.T) {
	pre, cont, err := EncBitString([]byte{0xff, 0xff, 0xff, 0xff}, 32, 22, 32, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pre.Len == 0 {
		t.Fatalf("expected a length preamble since min != max")
	}
	if len(cont) != 4 {
		t.Fatalf("got %d content bytes, want 4", len(cont))
	}
}
