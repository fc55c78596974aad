package stellarrpc

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

// PayoutParams fixes every input of the payout and merge envelopes. Both sides of the
// co-signature rebuild the same bytes from it, so nothing here may depend on wall time.
type PayoutParams struct {
	Ephemeral      string
	FundingAccount string
	// Sequence is the ephemeral's sequence right after creation; payout uses +1, merge +2.
	Sequence    int64
	Destination string
	Amount      string
	AssetCode   string
	AssetIssuer string
	Memo        string
	MemoType    string
	MaxTime     int64
	BaseFee     int64
}

func (p PayoutParams) asset() txnbuild.CreditAsset {
	return txnbuild.CreditAsset{Code: p.AssetCode, Issuer: p.AssetIssuer}
}

// BuildMemo maps an anchor memo descriptor onto a Stellar memo. Hash memos arrive base64 or hex.
func BuildMemo(memo, memoType string) (txnbuild.Memo, error) {
	switch memoType {
	case "", "none":
		return nil, nil
	case "text":
		if len(memo) > 28 {
			return nil, fmt.Errorf("text memo longer than 28 bytes")
		}
		return txnbuild.MemoText(memo), nil
	case "id":
		id, err := strconv.ParseUint(memo, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("id memo %q: %w", memo, err)
		}
		return txnbuild.MemoID(id), nil
	case "hash":
		raw, err := base64.StdEncoding.DecodeString(memo)
		if err != nil || len(raw) != 32 {
			raw, err = hex.DecodeString(memo)
		}
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("hash memo must be 32 bytes")
		}
		var h txnbuild.MemoHash
		copy(h[:], raw)
		return h, nil
	}
	return nil, fmt.Errorf("unsupported memo type %q", memoType)
}

func BuildPayment(p PayoutParams) (*txnbuild.Transaction, error) {
	memo, err := BuildMemo(p.Memo, p.MemoType)
	if err != nil {
		return nil, err
	}
	return txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: p.Ephemeral, Sequence: p.Sequence},
		IncrementSequenceNum: true,
		BaseFee:              p.BaseFee,
		Memo:                 memo,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimebounds(0, p.MaxTime)},
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: p.Destination,
				Amount:      p.Amount,
				Asset:       p.asset(),
			},
		},
	})
}

// BuildMerge drops the trustline and merges the ephemeral into the funding account.
func BuildMerge(p PayoutParams) (*txnbuild.Transaction, error) {
	line, err := p.asset().ToChangeTrustAsset()
	if err != nil {
		return nil, err
	}
	return txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: p.Ephemeral, Sequence: p.Sequence + 1},
		IncrementSequenceNum: true,
		BaseFee:              p.BaseFee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimebounds(0, p.MaxTime)},
		Operations: []txnbuild.Operation{
			&txnbuild.ChangeTrust{Line: line, Limit: "0"},
			&txnbuild.AccountMerge{Destination: p.FundingAccount},
		},
	})
}

// SignWithCosigner adds the ephemeral signature and the remote one, returning the base64 envelope.
func SignWithCosigner(tx *txnbuild.Transaction, passphrase string, ephemeral *keypair.Full, cosigner, cosignature string) (string, error) {
	signed, err := tx.Sign(passphrase, ephemeral)
	if err != nil {
		return "", err
	}
	signed, err = signed.AddSignatureBase64(passphrase, cosigner, cosignature)
	if err != nil {
		return "", fmt.Errorf("attach cosignature: %w", err)
	}
	return signed.Base64()
}

// EnvelopeSequence decodes an envelope and returns its sequence number.
func EnvelopeSequence(envelope string) (int64, error) {
	generic, err := txnbuild.TransactionFromXDR(envelope)
	if err != nil {
		return 0, err
	}
	tx, ok := generic.Transaction()
	if !ok {
		return 0, fmt.Errorf("fee bump envelopes are not expected")
	}
	return tx.SequenceNumber(), nil
}
