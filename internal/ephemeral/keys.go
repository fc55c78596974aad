package ephemeral

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stellar/go/keypair"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

// NewForFlow creates one fresh keypair per chain the flow touches.
func NewForFlow(flowType model.FlowType) (model.Ephemerals, error) {
	var out model.Ephemerals
	var err error

	if out.Pendulum, err = NewPendulumAccount(); err != nil {
		return out, err
	}
	if flowType.PaysOutOnStellar() {
		if out.Stellar, err = NewStellarAccount(); err != nil {
			return out, err
		}
	}
	if flowType.Family() == model.FamilyOfframpBRL || flowType.IsOnramp() {
		if out.Moonbeam, err = NewMoonbeamAccount(); err != nil {
			return out, err
		}
	}
	return out, nil
}

func NewPendulumAccount() (*model.EphemeralAccount, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	key := ed25519.NewKeyFromSeed(seed)
	address, err := EncodeSS58(key.Public().(ed25519.PublicKey), PendulumSS58Prefix)
	if err != nil {
		return nil, err
	}
	return &model.EphemeralAccount{Address: address, Seed: "0x" + hex.EncodeToString(seed)}, nil
}

func PendulumKey(acc *model.EphemeralAccount) (ed25519.PrivateKey, error) {
	if acc == nil {
		return nil, fmt.Errorf("pendulum ephemeral missing")
	}
	seed, err := hex.DecodeString(strings.TrimPrefix(acc.Seed, "0x"))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("pendulum ephemeral seed malformed")
	}
	key := ed25519.NewKeyFromSeed(seed)

	pub, err := DecodeEd25519Address(acc.Address)
	if err != nil {
		return nil, err
	}
	if !pub.Equal(key.Public()) {
		return nil, fmt.Errorf("pendulum ephemeral seed does not match %s", acc.Address)
	}
	return key, nil
}

func NewStellarAccount() (*model.EphemeralAccount, error) {
	kp, err := keypair.Random()
	if err != nil {
		return nil, err
	}
	return &model.EphemeralAccount{Address: kp.Address(), Seed: kp.Seed()}, nil
}

func StellarKey(acc *model.EphemeralAccount) (*keypair.Full, error) {
	if acc == nil {
		return nil, fmt.Errorf("stellar ephemeral missing")
	}
	return keypair.ParseFull(acc.Seed)
}

func NewMoonbeamAccount() (*model.EphemeralAccount, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &model.EphemeralAccount{
		Address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Seed:    hexutil.Encode(crypto.FromECDSA(key)),
	}, nil
}

func MoonbeamKey(acc *model.EphemeralAccount) (*ecdsa.PrivateKey, error) {
	if acc == nil {
		return nil, fmt.Errorf("moonbeam ephemeral missing")
	}
	return crypto.HexToECDSA(strings.TrimPrefix(acc.Seed, "0x"))
}
