package substraterpc

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// multiSignatureEd25519 is the MultiSignature enum index for ed25519.
const multiSignatureEd25519 = 0x00

// SignPayload signs a signing payload the way the runtime verifies it: payloads longer than
// 256 bytes are blake2b-256 hashed first.
func SignPayload(key ed25519.PrivateKey, payload []byte) []byte {
	msg := payload
	if len(payload) > 256 {
		sum := blake2b.Sum256(payload)
		msg = sum[:]
	}
	return ed25519.Sign(key, msg)
}

// VerifyPayload is the inverse of SignPayload.
func VerifyPayload(pub ed25519.PublicKey, payload, sig []byte) bool {
	msg := payload
	if len(payload) > 256 {
		sum := blake2b.Sum256(payload)
		msg = sum[:]
	}
	return ed25519.Verify(pub, msg, sig)
}

// SignExtrinsic fetches the payload for call at nonce and signs it offline. Nothing is broadcast.
func SignExtrinsic(ctx context.Context, rpc ISubstrateRPC, key ed25519.PrivateKey, signer string, call Call, nonce uint64) (*SignedExtrinsic, error) {
	payload, err := rpc.SigningPayload(ctx, call, signer, nonce)
	if err != nil {
		return nil, err
	}
	sig := SignPayload(key, payload)

	return &SignedExtrinsic{
		Signer:    signer,
		Nonce:     nonce,
		Call:      call,
		Signature: "0x" + hex.EncodeToString(append([]byte{multiSignatureEd25519}, sig...)),
	}, nil
}
