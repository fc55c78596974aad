package ephemeral

import (
	"crypto/ed25519"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	PendulumSS58Prefix uint16 = 56
	PolkadotSS58Prefix uint16 = 0
)

var ss58Context = []byte("SS58PRE")

// EncodeSS58 encodes a 32 byte public key with a simple (single byte) network prefix.
func EncodeSS58(pub []byte, prefix uint16) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("ss58: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	if prefix >= 64 {
		return "", fmt.Errorf("ss58: prefix %d not supported", prefix)
	}

	body := append([]byte{byte(prefix)}, pub...)
	sum := ss58Checksum(body)
	return base58.Encode(append(body, sum[:2]...)), nil
}

// DecodeSS58 returns the public key and prefix after verifying the checksum.
func DecodeSS58(address string) ([]byte, uint16, error) {
	raw := base58.Decode(address)
	if len(raw) != 1+ed25519.PublicKeySize+2 {
		return nil, 0, fmt.Errorf("ss58: unexpected length %d", len(raw))
	}
	if raw[0] >= 64 {
		return nil, 0, fmt.Errorf("ss58: prefix byte %d not supported", raw[0])
	}

	body := raw[:1+ed25519.PublicKeySize]
	sum := ss58Checksum(body)
	if sum[0] != raw[len(raw)-2] || sum[1] != raw[len(raw)-1] {
		return nil, 0, fmt.Errorf("ss58: bad checksum")
	}

	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, body[1:])
	return pub, uint16(raw[0]), nil
}

// DecodeEd25519Address is DecodeSS58 plus a check that the key is a valid ed25519 point.
// sr25519 user accounts are not required to pass it, ephemeral accounts are.
func DecodeEd25519Address(address string) (ed25519.PublicKey, error) {
	pub, _, err := DecodeSS58(address)
	if err != nil {
		return nil, err
	}
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return nil, fmt.Errorf("ss58: not an ed25519 point: %w", err)
	}
	return ed25519.PublicKey(pub), nil
}

// ReencodeSS58 rewrites an address for another network prefix.
func ReencodeSS58(address string, prefix uint16) (string, error) {
	pub, _, err := DecodeSS58(address)
	if err != nil {
		return "", err
	}
	return EncodeSS58(pub, prefix)
}

func ss58Checksum(body []byte) [64]byte {
	return blake2b.Sum512(append(append([]byte{}, ss58Context...), body...))
}
