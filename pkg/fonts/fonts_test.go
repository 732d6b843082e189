package fonts

import (
	"sync"
	"testing"
)

func TestWidthScalesWithSize(t *testing.T) {
	m := Default()
	small := m.Width("Engineering", 10, false)
	large := m.Width("Engineering", 20, false)
	if small <= 0 {
		t.Fatalf("Width() = %v, want > 0", small)
	}
	if large <= small {
		t.Errorf("Width at 20px = %v, not larger than at 10px = %v", large, small)
	}
	if m.Width("", 14, false) != 0 {
		t.Error("empty text should have zero width")
	}
}

func TestBoldIsWider(t *testing.T) {
	m := Default()
	if m.Width("Orders", 14, true) < m.Width("Orders", 14, false) {
		t.Error("bold text should not be narrower than regular")
	}
}

func TestWideRunesMeasureOneEm(t *testing.T) {
	m := Default()
	if got := m.Width("组织架构", 16, false); got != 64 {
		t.Errorf("Width(4 CJK runes, 16px) = %v, want 64", got)
	}
	mixed := m.Width("A组", 16, false)
	if mixed != m.Width("A", 16, false)+16 {
		t.Errorf("mixed width = %v", mixed)
	}
}

func TestIsWide(t *testing.T) {
	tests := []struct {
		r    rune
		want bool
	}{
		{'a', false},
		{'中', true},
		{'カ', true},
		{'Ａ', true},
		{'é', false},
	}
	for _, tt := range tests {
		if got := IsWide(tt.r); got != tt.want {
			t.Errorf("IsWide(%q) = %v, want %v", tt.r, got, tt.want)
		}
	}
	if !HasWide("root 根") || HasWide("root") {
		t.Error("HasWide mismatch")
	}
}

func TestMeasurerIsDeterministicAndConcurrent(t *testing.T) {
	m := Default()
	want := m.Width("Platform team", 13, false)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := m.Width("Platform team", 13, false); got != want {
				t.Errorf("Width() = %v, want %v", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestLineHeight(t *testing.T) {
	if got := Default().LineHeight(16); got != 20 {
		t.Errorf("LineHeight(16) = %v, want 20", got)
	}
}
