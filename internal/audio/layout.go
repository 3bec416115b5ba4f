package audio

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrLayoutIndexOutOfRange is returned when a variant or layer names a
	// channel pair the track does not have.
	ErrLayoutIndexOutOfRange = errors.New("channel pair index out of range")

	// ErrDuplicateChannelPair is returned when two variants/layers claim the
	// same channel pair.
	ErrDuplicateChannelPair = errors.New("duplicate channel pair index")
)

// PairRef names one stereo channel pair: samples 2*Pair and 2*Pair+1 of each
// interleaved frame.
type PairRef struct {
	Name string
	Pair int
}

// Layout partitions a track's channel pairs into variants (mutually
// exclusive, exactly one plays) and layers (additive, any subset plays).
// Order is authoring order: the first variant is the default selection and
// layer bitmasks follow layer order.
type Layout struct {
	Variants []PairRef
	Layers   []PairRef
}

// NewLayout validates pair indices against the track's pair count: every
// index in range, no pair claimed twice across variants and layers, at least
// one variant.
func NewLayout(variants, layers []PairRef, pairs int) (*Layout, error) {
	if len(variants) == 0 {
		return nil, errors.New("layout needs at least one variant")
	}
	seen := make(map[int]string, len(variants)+len(layers))
	check := func(kind string, refs []PairRef) error {
		for _, r := range refs {
			if r.Pair < 0 || r.Pair >= pairs {
				return fmt.Errorf("%w: %s %q uses pair %d, track has %d",
					ErrLayoutIndexOutOfRange, kind, r.Name, r.Pair, pairs)
			}
			if prev, dup := seen[r.Pair]; dup {
				return fmt.Errorf("%w: %s %q and %q both use pair %d",
					ErrDuplicateChannelPair, kind, r.Name, prev, r.Pair)
			}
			seen[r.Pair] = r.Name
		}
		return nil
	}
	if err := check("variant", variants); err != nil {
		return nil, err
	}
	if err := check("layer", layers); err != nil {
		return nil, err
	}
	return &Layout{Variants: variants, Layers: layers}, nil
}

// DefaultLayout is the layout for a raw file opened without a song document:
// pair 0 is the sole variant and every further pair is an independent layer
// named by its pair index.
func DefaultLayout(pairs int) *Layout {
	l := &Layout{Variants: []PairRef{{Name: "Main", Pair: 0}}}
	for p := 1; p < pairs; p++ {
		l.Layers = append(l.Layers, PairRef{Name: strconv.Itoa(p), Pair: p})
	}
	return l
}

// VariantIndex returns the position of the named variant in layout order.
func (l *Layout) VariantIndex(name string) (int, bool) {
	for i, r := range l.Variants {
		if r.Name == name {
			return i, true
		}
	}
	return 0, false
}

// LayerIndex returns the position of the named layer in layout order.
func (l *Layout) LayerIndex(name string) (int, bool) {
	for i, r := range l.Layers {
		if r.Name == name {
			return i, true
		}
	}
	return 0, false
}

// VariantNames returns the variant names in layout order.
func (l *Layout) VariantNames() []string {
	names := make([]string, len(l.Variants))
	for i, r := range l.Variants {
		names[i] = r.Name
	}
	return names
}

// LayerNames returns the layer names in layout order.
func (l *Layout) LayerNames() []string {
	names := make([]string, len(l.Layers))
	for i, r := range l.Layers {
		names[i] = r.Name
	}
	return names
}
