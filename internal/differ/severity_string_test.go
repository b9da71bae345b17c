package differ

import "testing"

func TestSeverityString(t *testing.T) {
	tests := []struct {
		level    SeverityLevel
		expected string
	}{
		{SeverityCritical, "critical"},
		{SeverityModerate, "moderate"},
		{SeveritySafe, "info"},
		{SeverityLevel(99), "unknown"},
		{SeverityLevel(-1), "unknown"},
	}

	for _, tt := range tests {
		got := SeverityString(tt.level)
		if got != tt.expected {
			t.Errorf("SeverityString(%d) = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestDriftSymbol(t *testing.T) {
	for typ, want := range map[DriftType]string{DriftAdded: "+", DriftResolved: "-", DriftChanged: "~"} {
		if got := DriftSymbol(typ); got != want {
			t.Errorf("DriftSymbol(%s) = %q, want %q", typ, got, want)
		}
	}
}
