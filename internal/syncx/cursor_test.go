package syncx

import "testing"

func TestEncodeCursor(t *testing.T) {
	tests := []struct {
		name     string
		cursor   Cursor
		expected string
	}{
		{
			name:     "normal cursor",
			cursor:   Cursor{Ms: 1730635200000, MessageID: 42},
			expected: "MTczMDYzNTIwMDAwMHw0Mg",
		},
		{
			name:     "zero timestamp nonzero id",
			cursor:   Cursor{Ms: 0, MessageID: 42},
			expected: "MHw0Mg",
		},
		{
			name:     "zero value cursor",
			cursor:   Cursor{Ms: 0, MessageID: 0},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeCursor(tt.cursor)
			if got != tt.expected {
				t.Errorf("EncodeCursor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDecodeCursor(t *testing.T) {
	tests := []struct {
		name      string
		encoded   string
		wantMs    int64
		wantID    int64
		wantValid bool
	}{
		{
			name:      "valid cursor",
			encoded:   "MTczMDYzNTIwMDAwMHw0Mg",
			wantMs:    1730635200000,
			wantID:    42,
			wantValid: true,
		},
		{
			name:      "empty string",
			encoded:   "",
			wantValid: false,
		},
		{
			name:      "invalid base64",
			encoded:   "not-base64!!!",
			wantValid: false,
		},
		{
			name:      "invalid format (no pipe)",
			encoded:   "MTIzNDU2Nzg5MA",
			wantValid: false,
		},
		{
			name:      "invalid timestamp",
			encoded:   "YWJjfDQy", // "abc|42"
			wantValid: false,
		},
		{
			name:      "invalid message id",
			encoded:   "MTIzNDU2fG5vdC1hbi1pZA", // "123456|not-an-id"
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, valid := DecodeCursor(tt.encoded)
			if valid != tt.wantValid {
				t.Errorf("DecodeCursor() valid = %v, want %v", valid, tt.wantValid)
			}
			if valid {
				if got.Ms != tt.wantMs {
					t.Errorf("DecodeCursor() Ms = %v, want %v", got.Ms, tt.wantMs)
				}
				if got.MessageID != tt.wantID {
					t.Errorf("DecodeCursor() MessageID = %v, want %v", got.MessageID, tt.wantID)
				}
			}
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{Ms: 1730635200000, MessageID: 42}

	encoded := EncodeCursor(original)
	decoded, valid := DecodeCursor(encoded)

	if !valid {
		t.Fatal("DecodeCursor() failed for valid cursor")
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}

func TestRFC3339(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{name: "normal timestamp", ms: 1730635200000, want: "2024-11-03T12:00:00Z"},
		{name: "epoch", ms: 0, want: "1970-01-01T00:00:00Z"},
		{name: "with milliseconds", ms: 1730635200123, want: "2024-11-03T12:00:00.123Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RFC3339(tt.ms)
			if got != tt.want {
				t.Errorf("RFC3339() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNowMs(t *testing.T) {
	before := NowMs()
	after := NowMs()

	if after < before {
		t.Error("NowMs() went backwards in time")
	}
	if after-before > 1000 {
		t.Errorf("NowMs() took more than 1 second between calls: %d ms", after-before)
	}
}
