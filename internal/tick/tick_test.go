package tick

import "testing"

func TestFloorAlignBounds(t *testing.T) {
	spacings := []int32{1, 10, 60, 200}
	ticks := []int32{-887272, -121, -60, -1, 0, 1, 59, 60, 61, 121, 887272}

	for _, spacing := range spacings {
		for _, tk := range ticks {
			got := FloorAlign(tk, spacing)
			if got > tk {
				t.Fatalf("FloorAlign(%d, %d) = %d exceeds input", tk, spacing, got)
			}
			if tk-got >= spacing {
				t.Fatalf("FloorAlign(%d, %d) = %d not within one spacing", tk, spacing, got)
			}
			if got%spacing != 0 {
				t.Fatalf("FloorAlign(%d, %d) = %d not a multiple of spacing", tk, spacing, got)
			}
		}
	}
}

func TestCeilAlignBounds(t *testing.T) {
	spacings := []int32{1, 10, 60, 200}
	ticks := []int32{-887272, -121, -60, -1, 0, 1, 59, 60, 61, 121, 887272}

	for _, spacing := range spacings {
		for _, tk := range ticks {
			got := CeilAlign(tk, spacing)
			if got < tk {
				t.Fatalf("CeilAlign(%d, %d) = %d below input", tk, spacing, got)
			}
			if got-tk >= spacing {
				t.Fatalf("CeilAlign(%d, %d) = %d not within one spacing", tk, spacing, got)
			}
			if got%spacing != 0 {
				t.Fatalf("CeilAlign(%d, %d) = %d not a multiple of spacing", tk, spacing, got)
			}
		}
	}
}

func TestAlignRangeWidensOnly(t *testing.T) {
	requested := Range{Lower: -125, Upper: 95}
	aligned, err := AlignRange(requested, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aligned.Lower > requested.Lower || aligned.Upper < requested.Upper {
		t.Fatalf("aligned range %+v narrows requested %+v", aligned, requested)
	}
	if aligned.Lower != -180 || aligned.Upper != 120 {
		t.Fatalf("unexpected alignment: %+v", aligned)
	}
}

func TestAlignRangeIdempotent(t *testing.T) {
	aligned, err := AlignRange(Range{Lower: -180, Upper: 120}, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aligned.Lower != -180 || aligned.Upper != 120 {
		t.Fatalf("already aligned range changed: %+v", aligned)
	}
}

func TestAlignRangeFullRange(t *testing.T) {
	aligned, err := AlignRange(Range{Lower: MinTick, Upper: MaxTick}, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aligned.Lower != MinTick || aligned.Upper != MaxTick {
		t.Fatalf("full range not preserved at spacing 60: %+v", aligned)
	}
	if err := aligned.Validate(); err != nil {
		t.Fatalf("full range invalid: %v", err)
	}
}

func TestAlignRangeInvalidSpacing(t *testing.T) {
	if _, err := AlignRange(Range{Lower: 0, Upper: 60}, 0); err == nil {
		t.Fatalf("expected error for zero spacing")
	}
	if _, err := AlignRange(Range{Lower: 0, Upper: 60}, -10); err == nil {
		t.Fatalf("expected error for negative spacing")
	}
}

func TestRangeValidate(t *testing.T) {
	cases := []struct {
		name    string
		r       Range
		wantErr bool
	}{
		{"valid", Range{Lower: -60, Upper: 60}, false},
		{"inverted", Range{Lower: 60, Upper: -60}, true},
		{"equal", Range{Lower: 0, Upper: 0}, true},
		{"below min", Range{Lower: MinTick - 1, Upper: 0}, true},
		{"above max", Range{Lower: 0, Upper: MaxTick + 1}, true},
		{"full", Range{Lower: MinTick, Upper: MaxTick}, false},
	}

	for _, tc := range cases {
		err := tc.r.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}
