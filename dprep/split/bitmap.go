package split

import (
	"fmt"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/pairs"

	roaring "github.com/RoaringBitmap/roaring"
)

// EncodeIndex serializes a held-out index bitmap in the portable roaring format.
func EncodeIndex(held *roaring.Bitmap) ([]byte, error) {
	if held == nil {
		held = roaring.New()
	}
	held.RunOptimize()
	return held.ToBytes()
}

// DecodeIndex is the inverse of EncodeIndex.
func DecodeIndex(data []byte) (*roaring.Bitmap, error) {
	held := roaring.New()
	if len(data) == 0 {
		return held, nil
	}
	if err := held.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode held-out index: %w", err)
	}
	return held, nil
}

// Reconstruct rebuilds a partition from the original pair list and a held-out index.
// Both lists keep the original relative order.
func Reconstruct(ps []pairs.Pair, held *roaring.Bitmap) (*Dataset, error) {
	if held == nil {
		held = roaring.New()
	}
	if !held.IsEmpty() && uint64(held.Maximum()) >= uint64(len(ps)) {
		return nil, common.InvalidInputf("held-out index %d out of range for %d pairs", held.Maximum(), len(ps))
	}
	ds := &Dataset{
		Train:           make([]pairs.Pair, 0, len(ps)-int(held.GetCardinality())),
		Validation:      make([]pairs.Pair, 0, held.GetCardinality()),
		ValidationIndex: held.Clone(),
	}
	for i, p := range ps {
		if held.Contains(uint32(i)) {
			ds.Validation = append(ds.Validation, p)
		} else {
			ds.Train = append(ds.Train, p)
		}
	}
	return ds, nil
}
