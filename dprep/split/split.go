package split

import (
	"math"
	"math/rand/v2"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/pairs"

	roaring "github.com/RoaringBitmap/roaring"
)

// Options controls the train/validation partition.
type Options struct {
	// HeldOutFraction is the share of items reserved for validation, in [0, 1].
	HeldOutFraction float64
	// Seed makes the shuffle deterministic. Nil draws a fresh random seed.
	Seed *uint64
}

// Dataset is a partition of pairs into disjoint train and validation lists.
// ValidationIndex holds the original positions of the validation pairs.
type Dataset struct {
	Train           []pairs.Pair
	Validation      []pairs.Pair
	ValidationIndex *roaring.Bitmap
}

// Sizes returns the train and validation sizes for n items. The validation size is
// round(fraction*n) with halves rounded away from zero; train takes the rest.
func Sizes(n int, fraction float64) (train, validation int, err error) {
	if err := validateFraction(fraction); err != nil {
		return 0, 0, err
	}
	validation = int(math.Round(fraction * float64(n)))
	if validation > n {
		validation = n
	}
	return n - validation, validation, nil
}

func validateFraction(f float64) error {
	if math.IsNaN(f) || f < 0 || f > 1 {
		return common.InvalidConfigf("held-out fraction must be within [0, 1], got %v", f)
	}
	return nil
}

// NewRand returns the shuffle source for opts.
func NewRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
}

// Partition shuffles items uniformly and cuts the permutation: the first
// round(fraction*n) positions become validation, the remainder train.
// The returned bitmap holds the original indices of the validation items.
func Partition[T any](items []T, fraction float64, rng *rand.Rand) (train, validation []T, held *roaring.Bitmap, err error) {
	nTrain, nVal, err := Sizes(len(items), fraction)
	if err != nil {
		return nil, nil, nil, err
	}
	if uint64(len(items)) > math.MaxUint32 {
		return nil, nil, nil, common.InvalidInputf("cannot split %d items", len(items))
	}

	perm := rng.Perm(len(items))
	held = roaring.New()
	validation = make([]T, 0, nVal)
	for _, idx := range perm[:nVal] {
		held.Add(uint32(idx))
		validation = append(validation, items[idx])
	}
	train = make([]T, 0, nTrain)
	for _, idx := range perm[nVal:] {
		train = append(train, items[idx])
	}
	return train, validation, held, nil
}

// Split partitions pairs according to opts.
func Split(ps []pairs.Pair, opts Options) (*Dataset, error) {
	train, val, held, err := Partition(ps, opts.HeldOutFraction, NewRand(opts.Seed))
	if err != nil {
		return nil, err
	}
	return &Dataset{Train: train, Validation: val, ValidationIndex: held}, nil
}
