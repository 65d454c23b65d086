package generator

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"intentgate/internal/config"
)

// Signer signs the canonical intent payload. Implementations must be safe
// for concurrent use.
type Signer interface {
	Sign(payload []byte) (string, error)
	Scheme() config.SigningScheme
}

// NewSigner builds the signer for the configured scheme. The config is
// assumed validated: key presence and length were checked at startup.
func NewSigner(cfg config.Signing) (Signer, error) {
	switch cfg.Scheme {
	case config.SigningNone, "":
		return NoopSigner{}, nil
	case config.SigningHMAC:
		key, err := cfg.KeyBytes()
		if err != nil {
			return nil, err
		}
		if len(key) == 0 {
			return nil, errors.New("hmac signer requires a key")
		}
		return &HMACSigner{key: key}, nil
	case config.SigningEd25519:
		key, err := cfg.KeyBytes()
		if err != nil {
			return nil, err
		}
		switch len(key) {
		case ed25519.SeedSize:
			return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(key)}, nil
		case ed25519.PrivateKeySize:
			return &Ed25519Signer{priv: ed25519.PrivateKey(key)}, nil
		default:
			return nil, fmt.Errorf("ed25519 signer: bad key length %d", len(key))
		}
	default:
		return nil, fmt.Errorf("unknown signing scheme %q", cfg.Scheme)
	}
}

// NoopSigner is used when signing is disabled; trusted intents still carry
// a content hash, just no signature.
type NoopSigner struct{}

func (NoopSigner) Sign(payload []byte) (string, error) { return "", nil }
func (NoopSigner) Scheme() config.SigningScheme        { return config.SigningNone }

// HMACSigner signs with HMAC-SHA256 over the canonical payload.
type HMACSigner struct {
	key []byte
}

func (s *HMACSigner) Sign(payload []byte) (string, error) {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (s *HMACSigner) Scheme() config.SigningScheme { return config.SigningHMAC }

// Verify checks a signature produced by Sign in constant time.
func (s *HMACSigner) Verify(payload []byte, signature string) bool {
	want, err := s.Sign(payload)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(want), []byte(signature))
}

// Ed25519Signer signs with an Ed25519 private key; the public key can be
// handed to downstream verifiers.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

func (s *Ed25519Signer) Sign(payload []byte) (string, error) {
	return hex.EncodeToString(ed25519.Sign(s.priv, payload)), nil
}

func (s *Ed25519Signer) Scheme() config.SigningScheme { return config.SigningEd25519 }

// PublicKey returns the verification key.
func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}
