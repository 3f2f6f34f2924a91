package password

import "errors"

// ErrUnrecognizedHash is returned when no hasher in a [Chain] understands the
// stored hash format.
var ErrUnrecognizedHash = errors.New("unrecognized password hash format")

// Hasher is implemented by [Argon2] and [Bcrypt].
type Hasher interface {
	Algorithm() string
	Recognizes(encodedHash string) bool
	Hash(password string) (string, error)
	Verify(password string, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Chain hashes with Primary and verifies with whichever hasher recognizes the
// stored format, checking Primary first.
type Chain struct {
	Primary Hasher
	Legacy  []Hasher
}

// NewChain returns a Chain. primary must not be nil.
func NewChain(primary Hasher, legacy ...Hasher) (*Chain, error) {
	if primary == nil {
		return nil, errors.New("primary hasher is required")
	}
	for _, h := range legacy {
		if h == nil {
			return nil, errors.New("legacy hasher must not be nil")
		}
	}
	return &Chain{Primary: primary, Legacy: legacy}, nil
}

func (c *Chain) Algorithm() string {
	return c.Primary.Algorithm()
}

func (c *Chain) Recognizes(encodedHash string) bool {
	return c.pick(encodedHash) != nil
}

func (c *Chain) Hash(password string) (string, error) {
	return c.Primary.Hash(password)
}

// Verify returns ErrUnrecognizedHash when no hasher owns encodedHash.
func (c *Chain) Verify(password string, encodedHash string) (bool, error) {
	h := c.pick(encodedHash)
	if h == nil {
		return false, ErrUnrecognizedHash
	}
	return h.Verify(password, encodedHash)
}

// NeedsUpgrade is true for any hash not written by Primary.
func (c *Chain) NeedsUpgrade(encodedHash string) (bool, error) {
	h := c.pick(encodedHash)
	if h == nil {
		return false, ErrUnrecognizedHash
	}
	if h != c.Primary {
		return true, nil
	}
	return h.NeedsUpgrade(encodedHash)
}

func (c *Chain) pick(encodedHash string) Hasher {
	if c.Primary.Recognizes(encodedHash) {
		return c.Primary
	}
	for _, h := range c.Legacy {
		if h.Recognizes(encodedHash) {
			return h
		}
	}
	return nil
}
