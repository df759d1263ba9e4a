package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMMToDots(t *testing.T) {
	tests := []struct {
		mm   string
		dpi  int
		want int
	}{
		{"25.4", DPI203, 203},
		{"25.4", DPI305, 305},
		{"104", DPI203, 831},
		{"104", DPI305, 1249},
		{"0", DPI203, 0},
	}
	for _, tc := range tests {
		mm := decimal.RequireFromString(tc.mm)
		if got := MMToDots(mm, tc.dpi); got != tc.want {
			t.Errorf("MMToDots(%s, %d) = %d, want %d", tc.mm, tc.dpi, got, tc.want)
		}
	}
}

func TestDotsToMM(t *testing.T) {
	if got := DotsToMM(203, DPI203); !got.Equal(decimal.RequireFromString("25.4")) {
		t.Errorf("DotsToMM(203, 203) = %s, want 25.4", got)
	}
	if got := DotsToMM(0, DPI305); !got.IsZero() {
		t.Errorf("DotsToMM(0, 305) = %s, want 0", got)
	}
}

func TestLabelSizeDots(t *testing.T) {
	size := LabelSizeMM{
		Width:  decimal.RequireFromString("85"),
		Height: decimal.RequireFromString("120"),
	}
	w, h := size.Dots(DPI203)
	if w != 679 || h != 959 {
		t.Errorf("Dots() = (%d, %d), want (679, 959)", w, h)
	}
}
