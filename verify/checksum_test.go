package verify

import "testing"

// Vectors pinned against the deployed formula; a mismatch here means every
// fielded terminal would reject our responses.
func TestChecksum(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "1_"},
		{"single char", "a", "6422626_"},
		// Below the first modulus wrap the formula coincides with Adler-32,
		// so this value can be cross-checked against any Adler-32 table.
		{"adler parity", "Wikipedia", "300286872_"},
		{"prefix only", "PIP", "30736618_"},
		{"standard response", "PIPtrendfx9001232025.03.15", "1830946562_"},
		{"station response", "PIPtsmk5550012025.04.01", "1328350659_"},
		// Supplementary characters count as two UTF-16 units, not one rune.
		{"surrogate pair", "\U0001D400", "2357900357_"},
		{"surrogate pair embedded", "PIP\U0001D400tsmk", "1770305261_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.input); got != tt.want {
				t.Errorf("Checksum(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestChecksumDeterminism(t *testing.T) {
	const input = "PIPeurusd-pro4420482025.03.17"
	first := Checksum(input)
	for i := 0; i < 100; i++ {
		if got := Checksum(input); got != first {
			t.Fatalf("run %d: Checksum(%q) = %q, want %q", i, input, got, first)
		}
	}
	if first != "2360477734_" {
		t.Fatalf("Checksum(%q) = %q, want %q", input, first, "2360477734_")
	}
}

func TestResponseChecksum(t *testing.T) {
	got := ResponseChecksum("trendfx", "900123", "2025.03.15")
	if want := "1830946562_"; got != want {
		t.Errorf("ResponseChecksum = %q, want %q", got, want)
	}
}
