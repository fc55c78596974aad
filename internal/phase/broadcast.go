package phase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/ephemeral"
	"github.com/pendulum-chain/vortex-sub005/internal/evmrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
)

// submission describes one pre-signed transaction and how to tell it already landed.
type submission struct {
	role  model.TxRole
	chain string
	// nonceReader and address are optional; without them only the index is consulted.
	nonceReader ephemeral.NonceReader
	address     string
	nonce       uint64
	submit      func(ctx context.Context) (string, error)
}

type broadcastResult struct {
	Hash string
	// AlreadyDone is set when the index or the chain nonce showed an earlier broadcast.
	AlreadyDone bool
}

// landed reports an earlier broadcast of s, consulting the submission index first and the chain
// nonce second. It returns nil when s still has to go out.
func (h *Handlers) landed(ctx context.Context, state *model.RampState, s submission) (*broadcastResult, error) {
	fields := map[string]string{
		"session_id": state.SessionID,
		"role":       string(s.role),
	}

	recorded, err := h.ec.Submitted.Get(ctx, state.SessionID, s.role)
	if err != nil {
		return nil, err
	}
	if recorded != nil {
		fields["tx_hash"] = recorded.TxHash
		h.ec.Logger.Info("[phase.landed] already submitted, skipping", fields)
		return &broadcastResult{Hash: recorded.TxHash, AlreadyDone: true}, nil
	}

	if s.nonceReader != nil {
		consumed, err := ephemeral.NonceConsumed(ctx, s.nonceReader, s.address, s.nonce)
		if err != nil {
			return nil, err
		}
		if consumed {
			h.ec.Logger.Info("[phase.landed] nonce already consumed, skipping", fields)
			return &broadcastResult{AlreadyDone: true}, nil
		}
	}
	return nil, nil
}

// broadcastOnce submits s unless landed finds an earlier broadcast. A successful submission is
// recorded before returning.
func (h *Handlers) broadcastOnce(ctx context.Context, state *model.RampState, s submission) (*broadcastResult, error) {
	earlier, err := h.landed(ctx, state, s)
	if err != nil || earlier != nil {
		return earlier, err
	}

	fields := map[string]string{
		"session_id": state.SessionID,
		"role":       string(s.role),
	}
	hash, err := s.submit(ctx)
	if err != nil {
		return nil, err
	}
	fields["tx_hash"] = hash
	h.ec.Logger.Info("[phase.broadcastOnce] submitted", fields)

	if err := h.ec.Submitted.Record(ctx, &model.SubmittedTransaction{
		SessionID: state.SessionID,
		Role:      s.role,
		Chain:     s.chain,
		TxHash:    hash,
		Nonce:     int64(s.nonce),
		CreatedAt: h.ec.Clock.Now().UTC(),
	}); err != nil {
		// the chain nonce still protects the role on the next attempt
		h.ec.Logger.Error("[phase.broadcastOnce] failed to record submission", fields)
	}
	return &broadcastResult{Hash: hash}, nil
}

func requireTx(state *model.RampState, role model.TxRole) (string, error) {
	blob, ok := state.Transactions[role]
	if !ok || blob == "" {
		return "", ramp.Unrecoverablef("missing prepared transaction %s", role)
	}
	return blob, nil
}

func decodeExtrinsic(blob string) (*substraterpc.SignedExtrinsic, error) {
	var ext substraterpc.SignedExtrinsic
	if err := json.Unmarshal([]byte(blob), &ext); err != nil {
		return nil, ramp.Unrecoverable(fmt.Errorf("malformed prepared extrinsic: %w", err))
	}
	return &ext, nil
}

func encodeExtrinsic(ext *substraterpc.SignedExtrinsic) (string, error) {
	b, err := json.Marshal(ext)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// pendulumSubmission broadcasts a prepared extrinsic from the Pendulum ephemeral.
func (h *Handlers) pendulumSubmission(state *model.RampState, role model.TxRole, nonce uint64, inclusion **substraterpc.Inclusion) (submission, error) {
	blob, err := requireTx(state, role)
	if err != nil {
		return submission{}, err
	}
	ext, err := decodeExtrinsic(blob)
	if err != nil {
		return submission{}, err
	}
	if ext.Nonce != nonce {
		return submission{}, ramp.Unrecoverablef("prepared %s carries nonce %d, expected %d", role, ext.Nonce, nonce)
	}

	return submission{
		role:        role,
		chain:       h.ec.Pendulum.Chain(),
		nonceReader: h.ec.Pendulum,
		address:     ext.Signer,
		nonce:       nonce,
		submit: func(ctx context.Context) (string, error) {
			inc, err := h.ec.Pendulum.Submit(ctx, ext)
			if err != nil {
				return "", err
			}
			if inclusion != nil {
				*inclusion = inc
			}
			return inc.Hash, nil
		},
	}, nil
}

// submitPendulum broadcasts once and folds the "someone already applied this nonce" answers of
// the node into AlreadyDone.
func (h *Handlers) submitPendulum(ctx context.Context, state *model.RampState, role model.TxRole, nonce uint64) (*broadcastResult, *substraterpc.Inclusion, error) {
	var inclusion *substraterpc.Inclusion
	s, err := h.pendulumSubmission(state, role, nonce, &inclusion)
	if err != nil {
		return nil, nil, err
	}

	res, err := h.broadcastOnce(ctx, state, s)
	var included *substraterpc.AlreadyIncludedError
	switch {
	case err == nil:
		return res, inclusion, nil
	case errors.Is(err, substraterpc.ErrNonceTooLow), errors.As(err, &included):
		return &broadcastResult{AlreadyDone: true}, nil, nil
	case errors.Is(err, substraterpc.ErrDispatchFailed):
		// the nonce is spent and the pre-signed transaction cannot be replaced
		return nil, nil, ramp.Unrecoverable(err)
	case errors.Is(err, substraterpc.ErrAlreadyInPool):
		if err := h.waitNonceConsumed(ctx, s); err != nil {
			return nil, nil, err
		}
		return &broadcastResult{AlreadyDone: true}, nil, nil
	}
	return nil, nil, err
}

func (h *Handlers) waitNonceConsumed(ctx context.Context, s submission) error {
	return h.poll(ctx, func(ctx context.Context) (bool, error) {
		consumed, err := ephemeral.NonceConsumed(ctx, s.nonceReader, s.address, s.nonce)
		if err != nil {
			h.ec.Logger.Debug("[phase.waitNonceConsumed] nonce read failed", map[string]string{"error": err.Error()})
			return false, nil
		}
		return consumed, nil
	})
}

// submitMoonbeam broadcasts a prepared EVM transaction from the Moonbeam ephemeral and waits for
// its receipt. A transaction found already done by nonce has no hash to wait on.
func (h *Handlers) submitMoonbeam(ctx context.Context, state *model.RampState, role model.TxRole, nonce uint64) (*broadcastResult, error) {
	raw, err := requireTx(state, role)
	if err != nil {
		return nil, err
	}
	tx, err := evmrpc.DecodeRawTx(raw)
	if err != nil {
		return nil, ramp.Unrecoverable(fmt.Errorf("malformed prepared %s: %w", role, err))
	}
	if tx.Nonce() != nonce {
		return nil, ramp.Unrecoverablef("prepared %s carries nonce %d, expected %d", role, tx.Nonce(), nonce)
	}
	if state.Ephemerals.Moonbeam == nil {
		return nil, ramp.Unrecoverablef("moonbeam ephemeral missing")
	}

	s := submission{
		role:        role,
		chain:       consts.ChainMoonbeam,
		nonceReader: h.ec.Moonbeam,
		address:     state.Ephemerals.Moonbeam.Address,
		nonce:       nonce,
		submit: func(ctx context.Context) (string, error) {
			hash, err := h.ec.Moonbeam.SendRawTransaction(ctx, raw)
			if errors.Is(err, evmrpc.ErrAlreadyKnown) {
				return hash, nil
			}
			return hash, err
		},
	}

	res, err := h.broadcastOnce(ctx, state, s)
	if errors.Is(err, evmrpc.ErrNonceTooLow) {
		return &broadcastResult{AlreadyDone: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if res.Hash == "" {
		return res, nil
	}

	if _, err := h.ec.Moonbeam.WaitForReceipt(ctx, res.Hash, h.ec.Config.PollInterval); err != nil {
		if errors.Is(err, evmrpc.ErrReverted) {
			return nil, ramp.Unrecoverable(err)
		}
		return nil, err
	}
	return res, nil
}
