package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
)

// PubkeyLen is the byte length of a Solana public key.
const PubkeyLen = 32

// DecodePubkey decodes a base58 public key into raw bytes.
func DecodePubkey(pubkey string) ([]byte, error) {
	raw, err := base58.Decode(pubkey)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", pubkey, err)
	}
	if len(raw) != PubkeyLen {
		return nil, fmt.Errorf("pubkey %q: expected %d bytes, got %d", pubkey, PubkeyLen, len(raw))
	}
	return raw, nil
}

// ValidatePubkey reports whether pubkey is a syntactically valid
// base58-encoded 32-byte identity.
func ValidatePubkey(pubkey string) error {
	_, err := DecodePubkey(pubkey)
	return err
}

// Keypair is an ed25519 signing keypair with a base58 public key.
type Keypair struct {
	pubkey string
	priv   ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{pubkey: base58.Encode(pub), priv: priv}, nil
}

// KeypairFromBytes builds a keypair from a 64-byte secret key
// (32-byte seed followed by 32-byte public key).
func KeypairFromBytes(secret []byte) (*Keypair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key: expected %d bytes, got %d", ed25519.PrivateKeySize, len(secret))
	}
	priv := ed25519.PrivateKey(secret)
	pub := priv.Public().(ed25519.PublicKey)
	return &Keypair{pubkey: base58.Encode(pub), priv: priv}, nil
}

// LoadKeypairFile reads a keypair from a Solana CLI keypair file
// (JSON array of 64 byte values).
func LoadKeypairFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}

	var raw []byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse keypair file %s: %w", path, err)
	}

	return KeypairFromBytes(raw)
}

// PublicKey returns the base58-encoded public key.
func (k *Keypair) PublicKey() string {
	return k.pubkey
}

// Sign signs a message with the private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}
