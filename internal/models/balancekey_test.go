package models

import "testing"

func TestParseBalanceKey(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    BalanceKey
		wantErr bool
	}{
		{"user id", "u1", UserKey("u1"), false},
		{"uuid user id", "0b26c0f0-9d3a-4b1e-8c2f-1a2b3c4d5e6f", UserKey("0b26c0f0-9d3a-4b1e-8c2f-1a2b3c4d5e6f"), false},
		{"ghost key", "ghost_42", GhostKey(42), false},
		{"malformed ghost key", "ghost_abc", BalanceKey{}, true},
		{"empty key", "", BalanceKey{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBalanceKey(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseBalanceKey(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBalanceKey(%q) failed: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseBalanceKey(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
			if got.String() != tt.raw {
				t.Errorf("round trip = %q, want %q", got.String(), tt.raw)
			}
		})
	}
}

func TestMemberBalanceKey(t *testing.T) {
	registered := Member{MemberID: 1, UserID: "u1", Name: "Alice"}
	if key := registered.BalanceKey(); key != UserKey("u1") {
		t.Errorf("registered member key = %+v, want user key", key)
	}

	ghost := Member{MemberID: 2, Name: "Offline Bob", IsGhost: true}
	if key := ghost.BalanceKey(); key != GhostKey(2) {
		t.Errorf("ghost member key = %+v, want ghost key", key)
	}
}
