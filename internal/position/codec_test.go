package position

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p    Position
		want Level
	}{
		{0, LevelGroup},
		{2_000_000, LevelGroup},
		{98_000_000, LevelGroup},
		{99_000_000, LevelGroup},
		{10_000, LevelIngredient},
		{2_010_000, LevelIngredient},
		{99_990_000, LevelIngredient},
		{2_010_200, LevelAlternative},
		{99_019_900, LevelAlternative},
		{2_010_203, LevelAlternativeGroup},
		{2_010_299, LevelAlternativeGroup},
		{1, LevelAlternativeGroup},
	}

	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.p); got != tt.want {
				t.Errorf("Classify(%d) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPredicatesAreExclusiveAndExhaustive(t *testing.T) {
	t.Parallel()

	// A prime stride visits every residue class of the three factors.
	for p := Position(0); p < GlobalGroupPosition(); p += 37 {
		n := 0
		if IsGroup(p) {
			n++
		}
		if IsAlternativeGroup(p) {
			n++
		}
		if IsAlternative(p) {
			n++
		}
		plain := !IsGroup(p) && !IsAlternativeGroup(p) && !IsAlternative(p)
		if plain {
			n++
		}
		if n != 1 {
			t.Fatalf("position %d matches %d predicates, want exactly 1", p, n)
		}

		var want Level
		switch {
		case IsGroup(p):
			want = LevelGroup
		case IsAlternativeGroup(p):
			want = LevelAlternativeGroup
		case IsAlternative(p):
			want = LevelAlternative
		default:
			want = LevelIngredient
		}
		if got := Classify(p); got != want {
			t.Fatalf("Classify(%d) = %v, predicates say %v", p, got, want)
		}
	}
}

func TestParentOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		p      Position
		want   Position
		wantOK bool
	}{
		{"and member", 2_010_203, 2_010_200, true},
		{"alternative", 2_010_200, 2_010_000, true},
		{"ingredient", 2_010_000, 2_000_000, true},
		{"root ingredient", 99_030_000, 99_000_000, true},
		{"group", 2_000_000, 0, false},
		{"first group", 0, 0, false},
		{"global group", 99_000_000, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParentOf(tt.p)
			if ok != tt.wantOK {
				t.Fatalf("ParentOf(%d) ok = %v, want %v", tt.p, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParentOf(%d) = %d, want %d", tt.p, got, tt.want)
			}
		})
	}
}

func TestParentLevelIsOneAbove(t *testing.T) {
	t.Parallel()

	for _, p := range []Position{10_000, 2_010_000, 2_010_200, 2_010_203, 99_990_000, 99_999_999} {
		parent, ok := ParentOf(p)
		if !ok {
			t.Fatalf("ParentOf(%d) reported no parent", p)
		}
		if got, want := Classify(parent), Classify(p)-1; got != want {
			t.Errorf("Classify(ParentOf(%d)) = %v, want %v", p, got, want)
		}
	}
}

func TestGroupOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p, want Position
	}{
		{0, 0},
		{10_000, 0},
		{2_010_203, 2_000_000},
		{99_019_901, 99_000_000},
	}
	for _, tt := range tests {
		if got := GroupOf(tt.p); got != tt.want {
			t.Errorf("GroupOf(%d) = %d, want %d", tt.p, got, tt.want)
		}
		if !IsGroup(GroupOf(tt.p)) {
			t.Errorf("GroupOf(%d) is not a group", tt.p)
		}
	}
}

func TestIsRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p    Position
		want bool
	}{
		{0, true},
		{5_000_000, true},
		{99_010_000, true},
		{99_010_100, false},
		{5_010_000, false},
	}
	for _, tt := range tests {
		if got := IsRoot(tt.p); got != tt.want {
			t.Errorf("IsRoot(%d) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestDecodeEncode(t *testing.T) {
	t.Parallel()

	d := Decode(12_345_678)
	want := Digits{Group: 12, Ingredient: 34, Alternative: 56, And: 78}
	if d != want {
		t.Fatalf("Decode(12345678) = %+v, want %+v", d, want)
	}
	if got := Encode(d); got != 12_345_678 {
		t.Errorf("Encode(%+v) = %d, want 12345678", d, got)
	}
	if got := Encode(Digits{Group: GlobalGroup, Ingredient: 1}); got != 99_010_000 {
		t.Errorf("Encode(global, 1) = %d, want 99010000", got)
	}
}

func TestTemporaryFinalize(t *testing.T) {
	t.Parallel()

	for p := Position(0); p < Limit; p += 9_973 {
		tmp := Temporary(p)
		if tmp >= 0 {
			t.Fatalf("Temporary(%d) = %d, want negative", p, tmp)
		}
		if got := Finalize(tmp); got != p {
			t.Fatalf("Finalize(Temporary(%d)) = %d", p, got)
		}
	}
	if Temporary(0) != -1 {
		t.Errorf("Temporary(0) = %d, want -1", Temporary(0))
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Position
		want error
	}{
		{"first group", 0, nil},
		{"root ingredient", 99_010_000, nil},
		{"and member", 2_010_203, nil},
		{"max", 98_999_999, nil},
		{"negative", -1, ErrOutOfRange},
		{"too large", 100_000_000, ErrOutOfRange},
		{"global group", 99_000_000, ErrGlobalGroupEntry},
		{"and without alternative", 2_010_003, ErrMalformed},
		{"alternative without ingredient", 2_000_100, ErrMalformed},
		{"and without anything", 2_000_001, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.p)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate(%d) = %v, want nil", tt.p, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate(%d) = %v, want %v", tt.p, err, tt.want)
			}
		})
	}
}

func TestPositionString(t *testing.T) {
	t.Parallel()

	if got := Position(2_010_203).String(); got != "02.01.02.03" {
		t.Errorf("String() = %q, want %q", got, "02.01.02.03")
	}
	if got := Temporary(10_000).String(); got != "tmp(10000)" {
		t.Errorf("String() = %q, want %q", got, "tmp(10000)")
	}
}
