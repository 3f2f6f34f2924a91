package password

import (
	"errors"
	"strings"
	"testing"
)

// testConfig keeps memory at the floor so the suite stays fast.
func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestArgon2(t *testing.T, mutate func(*Config)) *Argon2 {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestArgon2RoundTrip(t *testing.T) {
	h := newTestArgon2(t, nil)

	hash, err := h.Hash("Harvest2024")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}
	if !h.Recognizes(hash) {
		t.Fatal("expected hasher to recognize its own output")
	}

	ok, err := h.Verify("Harvest2024", hash)
	if err != nil || !ok {
		t.Fatalf("Verify(correct) = %v, %v", ok, err)
	}
	ok, err = h.Verify("Harvest2025", hash)
	if err != nil || ok {
		t.Fatalf("Verify(wrong) = %v, %v", ok, err)
	}
}

func TestArgon2SaltsDiffer(t *testing.T) {
	h := newTestArgon2(t, nil)
	a, _ := h.Hash("SamePassword1")
	b, _ := h.Hash("SamePassword1")
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestArgon2LengthBounds(t *testing.T) {
	h := newTestArgon2(t, func(c *Config) { c.MaxPasswordBytes = 64 })

	cases := []struct {
		name    string
		pwd     string
		wantErr error
	}{
		{"empty", "", ErrPasswordTooShort},
		{"seven bytes", "Abcdef1", ErrPasswordTooShort},
		{"eight bytes", "Abcdef12", nil},
		{"at max", strings.Repeat("b", 64), nil},
		{"over max", strings.Repeat("a", 65), ErrPasswordTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Hash(tc.pwd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Hash(%d bytes) err = %v, want %v", len(tc.pwd), err, tc.wantErr)
			}
		})
	}

	hash, err := h.Hash("valid-password-123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if _, err := h.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Verify(long) err = %v", err)
	}
}

func TestArgon2DefaultMaxPasswordBytes(t *testing.T) {
	h := newTestArgon2(t, nil)
	if _, err := h.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); err == nil {
		t.Fatalf("expected password > %d bytes to be rejected", DefaultMaxPasswordBytes)
	}
	if _, err := h.Hash(strings.Repeat("e", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("expected %d bytes to be accepted: %v", DefaultMaxPasswordBytes, err)
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	weak := newTestArgon2(t, nil)
	strong := newTestArgon2(t, func(c *Config) { c.Time = 2 })

	hash, err := weak.Hash("upgrade-me-1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if up, err := strong.NeedsUpgrade(hash); err != nil || !up {
		t.Fatalf("strong.NeedsUpgrade = %v, %v; want true", up, err)
	}
	if up, err := weak.NeedsUpgrade(hash); err != nil || up {
		t.Fatalf("weak.NeedsUpgrade = %v, %v; want false", up, err)
	}
}

func TestArgon2RejectsBadEncodings(t *testing.T) {
	h := newTestArgon2(t, nil)
	good, err := h.Hash("version-test")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	for name, encoded := range map[string]string{
		"not phc":       "not-a-phc-hash",
		"wrong version": strings.Replace(good, "$v=19$", "$v=18$", 1),
		"wrong algo":    strings.Replace(good, "$argon2id$", "$argon2i$", 1),
		"low memory":    strings.Replace(good, "m=8192", "m=16", 1),
	} {
		if _, err := h.Verify("version-test", encoded); err == nil {
			t.Errorf("%s: expected Verify error", name)
		}
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 1024 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
		"max bytes":   func(c *Config) { c.MaxPasswordBytes = 4 },
	} {
		cfg := testConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Errorf("%s: expected config error", name)
		}
	}
}
