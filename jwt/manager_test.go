package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()

	m, err := NewManager(Config{Secret: testSecret, TTL: 24 * time.Hour, Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	cases := []Claims{
		{SubjectID: "u1", Email: "farmer@example.com", Role: "farmer", ExpiresAt: clock.t.Add(time.Hour)},
		{SubjectID: "7d8c", Email: "", Role: "admin", ExpiresAt: clock.t.Add(time.Second)},
		{SubjectID: "expert@example.com", Email: "expert@example.com", Role: "expert", ExpiresAt: clock.t.Add(30 * 24 * time.Hour)},
	}

	for _, want := range cases {
		token, err := m.Encode(want)
		if err != nil {
			t.Fatalf("encode %+v: %v", want, err)
		}
		got, err := m.Decode(token)
		if err != nil {
			t.Fatalf("decode %+v: %v", want, err)
		}
		if got.SubjectID != want.SubjectID || got.Email != want.Email || got.Role != want.Role {
			t.Fatalf("claims mismatch: got %+v want %+v", got, want)
		}
		if !got.ExpiresAt.Equal(want.ExpiresAt) {
			t.Fatalf("expiry mismatch: got %v want %v", got.ExpiresAt, want.ExpiresAt)
		}
	}
}

func TestDecodeRejectsExpiredClaims(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	for _, exp := range []time.Time{clock.t.Add(-time.Second), clock.t.Add(-48 * time.Hour), clock.t} {
		token, err := m.Encode(Claims{SubjectID: "u1", Role: "farmer", ExpiresAt: exp})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		_, err = m.Decode(token)
		if !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("expected ErrInvalidSession for exp %v, got %v", exp, err)
		}
		if ReasonOf(err) != ReasonExpired {
			t.Fatalf("expected expired reason, got %q", ReasonOf(err))
		}
	}
}

func TestDecodeRejectsTokenAfterClockPassesExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, _, err := m.Mint("u1", "a@example.com", "farmer")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := m.Decode(token); err != nil {
		t.Fatalf("fresh token should decode: %v", err)
	}

	clock.Advance(24*time.Hour + time.Second)
	if _, err := m.Decode(token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	other, err := NewManager(Config{Secret: []byte("another-secret-another-secret-00"), TTL: time.Hour, Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, _, err := other.Mint("u1", "a@example.com", "admin")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	_, err = m.Decode(token)
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if ReasonOf(err) != ReasonSignature {
		t.Fatalf("expected signature reason, got %q", ReasonOf(err))
	}
}

func TestDecodeRejectsUnsignedAndOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	wire := wireClaims{Role: "admin", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: gjwt.NewNumericDate(clock.t.Add(time.Hour)),
	}}

	none, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, wire).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Decode(none); ReasonOf(err) != ReasonAlgorithm {
		t.Fatalf("expected algorithm rejection for none, got %v", err)
	}

	hs512, err := gjwt.NewWithClaims(gjwt.SigningMethodHS512, wire).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	if _, err := m.Decode(hs512); ReasonOf(err) != ReasonAlgorithm {
		t.Fatalf("expected algorithm rejection for HS512, got %v", err)
	}
}

func TestDecodeRejectsMalformedAndTampered(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	for _, token := range []string{"", "abc", "a.b.c", "....", strings.Repeat("x", 4096)} {
		if _, err := m.Decode(token); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("expected ErrInvalidSession for %q, got %v", token, err)
		}
	}

	token, _, err := m.Mint("u1", "a@example.com", "farmer")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	parts := strings.Split(token, ".")
	forged, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, wireClaims{Role: "admin", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: gjwt.NewNumericDate(clock.t.Add(time.Hour)),
	}}).SignedString([]byte("attacker-secret-attacker-secret!"))
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	forgedParts := strings.Split(forged, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]
	if _, err := m.Decode(spliced); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected payload splice to fail, got %v", err)
	}
}

func TestDecodeRequiresSubjectAndRole(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, wireClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: gjwt.NewNumericDate(clock.t.Add(time.Hour)),
	}}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Decode(token); ReasonOf(err) != ReasonClaims {
		t.Fatalf("expected claims rejection, got %v", err)
	}
}

func TestRefreshExtendsExpiryWithoutMutatingInput(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	_, original, err := m.Mint("u1", "a@example.com", "expert")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	before := original

	clock.Advance(6 * time.Hour)
	token, refreshed, err := m.Refresh(original)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if original != before {
		t.Fatal("refresh mutated input claims")
	}
	if !refreshed.ExpiresAt.Equal(clock.t.Add(24 * time.Hour)) {
		t.Fatalf("unexpected refreshed expiry %v", refreshed.ExpiresAt)
	}
	if refreshed.SubjectID != "u1" || refreshed.Role != "expert" || refreshed.Email != "a@example.com" {
		t.Fatalf("refresh changed identity: %+v", refreshed)
	}
	decoded, err := m.Decode(token)
	if err != nil {
		t.Fatalf("decode refreshed: %v", err)
	}
	if !decoded.ExpiresAt.Equal(refreshed.ExpiresAt) {
		t.Fatalf("decoded expiry %v, want %v", decoded.ExpiresAt, refreshed.ExpiresAt)
	}
}

func TestRefreshRejectsExpiredClaims(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	_, _, err := m.Refresh(Claims{SubjectID: "u1", Role: "farmer", ExpiresAt: clock.t.Add(-time.Minute)})
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestKeyRotationAcceptsPreviousKey(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	oldSecret := []byte("old-secret-old-secret-old-secret")

	old, err := NewManager(Config{Secret: oldSecret, TTL: time.Hour, KeyID: "k1", Now: clock.Now})
	if err != nil {
		t.Fatalf("old manager: %v", err)
	}
	current, err := NewManager(Config{
		Secret:     testSecret,
		TTL:        time.Hour,
		KeyID:      "k2",
		VerifyKeys: map[string][]byte{"k1": oldSecret},
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("current manager: %v", err)
	}

	token, _, err := old.Mint("u1", "a@example.com", "farmer")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := current.Decode(token); err != nil {
		t.Fatalf("expected rotated key to verify: %v", err)
	}

	unkeyed := newTestManager(t, clock)
	if _, err := unkeyed.Decode(token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected kid token to fail on unkeyed manager, got %v", err)
	}
}

func TestNewManagerRejectsWeakConfig(t *testing.T) {
	if _, err := NewManager(Config{Secret: []byte("short"), TTL: time.Hour}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if _, err := NewManager(Config{Secret: testSecret}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
	if _, err := NewManager(Config{Secret: testSecret, TTL: time.Hour, VerifyKeys: map[string][]byte{"k1": testSecret}}); err == nil {
		t.Fatal("expected VerifyKeys without KeyID to be rejected")
	}
}
