package embedding

import (
	"encoding/binary"
	"math"

	scouterrors "scout/internal/errors"
)

// ToBlob encodes v as little-endian float32, four bytes per value.
func ToBlob(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(x))
	}
	return b
}

// FromBlob decodes the first dim values of b.
func FromBlob(b []byte, dim int) ([]float32, error) {
	if dim < 0 || len(b) < 4*dim {
		return nil, scouterrors.Newf(scouterrors.ValidationError,
			"embedding blob has %d bytes, need %d for dim %d", len(b), 4*dim, dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
