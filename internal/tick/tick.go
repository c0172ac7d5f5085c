package tick

import "fmt"

// MinTick and MaxTick are the global tick bounds shared by all V3 pools.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// Range is a price interval in tick coordinates.
type Range struct {
	Lower int32
	Upper int32
}

// Validate checks ordering and global bounds.
func (r Range) Validate() error {
	if r.Lower >= r.Upper {
		return fmt.Errorf("tick lower %d must be below tick upper %d", r.Lower, r.Upper)
	}
	if r.Lower < MinTick {
		return fmt.Errorf("tick lower %d below minimum %d", r.Lower, MinTick)
	}
	if r.Upper > MaxTick {
		return fmt.Errorf("tick upper %d above maximum %d", r.Upper, MaxTick)
	}
	return nil
}

// FloorAlign returns the greatest multiple of spacing not exceeding t.
// The modulus is sign-corrected so negative ticks round toward MinTick.
func FloorAlign(t, spacing int32) int32 {
	rem := t % spacing
	if rem < 0 {
		rem += spacing
	}
	return t - rem
}

// CeilAlign returns the least multiple of spacing not below t.
func CeilAlign(t, spacing int32) int32 {
	rem := t % spacing
	if rem == 0 {
		return t
	}
	if rem < 0 {
		rem += spacing
	}
	return t + spacing - rem
}

// AlignRange widens a requested range to the nearest enclosing range whose
// bounds are multiples of spacing, clamped to the global tick bounds. It
// never narrows: the caller's range is a minimum exposure. Clamping keeps
// containment because requested bounds are themselves inside the globals.
func AlignRange(r Range, spacing int32) (Range, error) {
	if spacing <= 0 {
		return Range{}, fmt.Errorf("tick spacing must be positive, got %d", spacing)
	}
	lower := FloorAlign(r.Lower, spacing)
	if lower < MinTick {
		lower = MinTick
	}
	upper := CeilAlign(r.Upper, spacing)
	if upper > MaxTick {
		upper = MaxTick
	}
	return Range{Lower: lower, Upper: upper}, nil
}
