package chem

import (
	"fmt"
	"hash/fnv"
)

const defaultFingerprintBits = 2048

// Fingerprint is a hashed structural bit vector over token n-grams,
// immutable once computed.
type Fingerprint struct {
	bits    []byte
	numBits int
}

// ComputeFingerprint hashes token 1- to 3-grams of the canonical form
// into a fixed-width bit vector.
func ComputeFingerprint(smiles string) (*Fingerprint, error) {
	canon, err := Canonical(smiles)
	if err != nil {
		return nil, err
	}
	tokens, err := Tokenize(canon)
	if err != nil {
		return nil, err
	}

	fp := &Fingerprint{
		bits:    make([]byte, defaultFingerprintBits/8),
		numBits: defaultFingerprintBits,
	}
	for n := 1; n <= 3; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			h := fnv.New32a()
			for _, tok := range tokens[i : i+n] {
				h.Write([]byte(tok))
				h.Write([]byte{0})
			}
			bit := int(h.Sum32()) % fp.numBits
			if bit < 0 {
				bit += fp.numBits
			}
			fp.bits[bit/8] |= 1 << uint(bit%8)
		}
	}
	return fp, nil
}

// NumBits reports the fingerprint width.
func (fp *Fingerprint) NumBits() int { return fp.numBits }

// PopCount reports the number of set bits.
func (fp *Fingerprint) PopCount() int {
	count := 0
	for _, b := range fp.bits {
		v := b
		for v > 0 {
			v &= v - 1
			count++
		}
	}
	return count
}

// Tanimoto computes the Jaccard similarity of two fingerprints, in [0,1].
func Tanimoto(a, b *Fingerprint) (float64, error) {
	if a == nil || b == nil {
		return 0, fmt.Errorf("fingerprints are required")
	}
	if a.numBits != b.numBits {
		return 0, fmt.Errorf("fingerprint width mismatch: got=%d want=%d", b.numBits, a.numBits)
	}

	var inter, union int
	for i := range a.bits {
		andBits := a.bits[i] & b.bits[i]
		orBits := a.bits[i] | b.bits[i]
		for v := andBits; v > 0; v &= v - 1 {
			inter++
		}
		for v := orBits; v > 0; v &= v - 1 {
			union++
		}
	}
	if union == 0 {
		return 1.0, nil
	}
	return float64(inter) / float64(union), nil
}
