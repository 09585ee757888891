package model

import "testing"

func TestParseResistanceStatus(t *testing.T) {
	tests := []struct {
		input string
		want  ResistanceStatus
	}{
		{input: "resistant", want: StatusResistant},
		{input: "RESISTANT", want: StatusResistant},
		{input: "  Susceptible ", want: StatusSusceptible},
		{input: "Intermediate", want: StatusIntermediate},
		{input: "unknown", want: StatusUnknown},
		{input: "", want: StatusUnknown},
		{input: "partially resistant", want: StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseResistanceStatus(tt.input); got != tt.want {
				t.Fatalf("ParseResistanceStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStableKeyPrefersID(t *testing.T) {
	r := AnalysisRecord{ID: "42", SavedAt: "2025-04-04T12:30:45.000000000Z"}
	if r.StableKey() != "42" {
		t.Fatalf("expected id as stable key, got %q", r.StableKey())
	}
	r.ID = ""
	if r.StableKey() != r.SavedAt {
		t.Fatalf("expected savedAt as stable key, got %q", r.StableKey())
	}
}
