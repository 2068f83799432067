package discovery

import "testing"

func TestParseDeviceID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"11:22:33:44:55:66", true},
		{"aa:BB:cc:DD:ee:FF", true},
		{"11-22-33-44-55-66", false},
		{"112233445566", false},
		{"11:22:33:44:55", false},
		{"11:22:33:44:55:66:77", false},
		{"11:22:33:44:55:6", false},
		{"", false},
	}

	for _, tt := range tests {
		hw, err := ParseDeviceID(tt.id)
		if (err == nil) != tt.valid {
			t.Errorf("ParseDeviceID(%q) error = %v, want valid=%v", tt.id, err, tt.valid)
			continue
		}
		if tt.valid && len(hw) != 6 {
			t.Errorf("ParseDeviceID(%q) = %v, want 6 bytes", tt.id, hw)
		}
	}
}

func TestAirTunesInstanceName(t *testing.T) {
	got, err := AirTunesInstanceName("aa:BB:cc:DD:ee:FF", "Kitchen")
	if err != nil {
		t.Fatalf("AirTunesInstanceName() error = %v", err)
	}
	if got != "aaBBccDDeeFF@Kitchen" {
		t.Errorf("AirTunesInstanceName() = %q", got)
	}

	if _, err := AirTunesInstanceName("bogus", "Kitchen"); err != ErrInvalidDeviceID {
		t.Errorf("AirTunesInstanceName(bogus) error = %v, want %v", err, ErrInvalidDeviceID)
	}

	hexID, name, err := ParseAirTunesInstanceName(got)
	if err != nil || hexID != "aaBBccDDeeFF" || name != "Kitchen" {
		t.Errorf("ParseAirTunesInstanceName() = %q, %q, %v", hexID, name, err)
	}
	if _, _, err := ParseAirTunesInstanceName("nope"); err == nil {
		t.Error("ParseAirTunesInstanceName(nope) error = nil")
	}
}
