package iu

// AuthTuple is the Authentication Tuple (spec.md 3.4): the subset of a
// quintuplet/triplet the adaptor needs to build a Security Mode Command.
// Kc is the GSM ciphering key this adaptor derives UMTS IK/CK from,
// grounded on the source adaptor's iu_tx_sec_mode_cmd() bit construction
// rather than a real Milenage f3/f4 derivation — the host is expected to
// hand this adaptor a GSM-derived Kc, same as the system it's modeled on.
type AuthTuple struct {
	Kc [8]byte
}

// DeriveIK derives the UMTS Integrity Key from a GSM Kc, per the exact
// construction in iu_tx_sec_mode_cmd(): ik[0:4] = kc[0:4] xor kc[4:8],
// ik[4:12] = kc, ik[12:16] = ik[0:4].
func DeriveIK(kc [8]byte) [16]byte {
	var ik [16]byte
	for i := 0; i < 4; i++ {
		ik[i] = kc[i] ^ kc[i+4]
	}
	copy(ik[4:12], kc[:])
	copy(ik[12:16], ik[0:4])
	return ik
}

// DeriveCK derives the UMTS Cipher Key from a GSM Kc: CK = Kc || Kc.
func DeriveCK(kc [8]byte) [16]byte {
	var ck [16]byte
	copy(ck[0:8], kc[:])
	copy(ck[8:16], kc[:])
	return ck
}
