package crypto

import (
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	var raw [20]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	addr := MustNewAddress(JFPrefix, raw[:])
	encoded := addr.String()
	if !strings.HasPrefix(encoded, "jf1") {
		t.Fatalf("expected jf1 prefix, got %s", encoded)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bytes() != raw || decoded.Prefix() != JFPrefix {
		t.Fatalf("round trip mismatch: %x", decoded.Bytes())
	}
}

func TestParseIdentity(t *testing.T) {
	var raw [20]byte
	raw[19] = 0xAB
	bech := MustNewAddress(JFPrefix, raw[:]).String()

	cases := []struct {
		in      string
		wantErr bool
	}{
		{in: bech},
		{in: "0x00000000000000000000000000000000000000ab"},
		{in: "", wantErr: true},
		{in: "0x1234", wantErr: true},
		{in: MustNewAddress("nhb", raw[:]).String(), wantErr: true},
		{in: "not-an-address", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseIdentity(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseIdentity(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseIdentity(%q): %v", tc.in, err)
		}
		if got != raw {
			t.Fatalf("ParseIdentity(%q) = %x", tc.in, got)
		}
	}
}

func TestNewAddressRejectsShortInput(t *testing.T) {
	if _, err := NewAddress(JFPrefix, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestDeriveIdentityStable(t *testing.T) {
	a := DeriveIdentity("market/reserve")
	b := DeriveIdentity("market/reserve")
	if a != b || a == ([20]byte{}) {
		t.Fatalf("derived identity unstable: %x %x", a, b)
	}
	if DeriveIdentity("market/protocol") == a {
		t.Fatalf("distinct labels collided")
	}
}
