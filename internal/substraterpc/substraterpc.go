package substraterpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

type SubstrateRPC struct {
	chain  string
	client *resty.Client
	logger *logger.Logger
}

func New(chain, gatewayURL string, timeout time.Duration, logger *logger.Logger) ISubstrateRPC {
	return &SubstrateRPC{
		chain: chain,
		client: resty.New().
			SetBaseURL(strings.TrimRight(gatewayURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		logger: logger,
	}
}

func (s *SubstrateRPC) Chain() string {
	return s.chain
}

func (s *SubstrateRPC) AccountNonce(ctx context.Context, address string) (uint64, error) {
	var out nonceResponse
	if err := s.get(ctx, "/accounts/"+url.PathEscape(address)+"/nonce", nil, &out); err != nil {
		return 0, err
	}
	return out.Nonce, nil
}

func (s *SubstrateRPC) FreeBalance(ctx context.Context, address, currency string) (*big.Int, error) {
	var out balanceResponse
	query := map[string]string{}
	if currency != "" {
		query["currency"] = currency
	}
	if err := s.get(ctx, "/accounts/"+url.PathEscape(address)+"/balances", query, &out); err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(out.Free, 10)
	if !ok {
		return nil, fmt.Errorf("%s: malformed balance %q", s.chain, out.Free)
	}
	return balance, nil
}

func (s *SubstrateRPC) SigningPayload(ctx context.Context, call Call, signer string, nonce uint64) ([]byte, error) {
	var out payloadResponse
	body := map[string]interface{}{"call": call, "signer": signer, "nonce": nonce}
	if err := s.post(ctx, "/transaction/payload", body, &out); err != nil {
		return nil, err
	}
	payload, err := hex.DecodeString(strings.TrimPrefix(out.Payload, "0x"))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: malformed signing payload", s.chain)
	}
	return payload, nil
}

func (s *SubstrateRPC) Submit(ctx context.Context, ext *SignedExtrinsic) (*Inclusion, error) {
	var out Inclusion
	if err := s.post(ctx, "/transaction", map[string]interface{}{"signed": ext}, &out); err != nil {
		return nil, err
	}
	s.logger.Info("[SubstrateRPC.Submit] extrinsic included", map[string]string{
		"chain":     s.chain,
		"hash":      out.Hash,
		"blockHash": out.BlockHash,
	})
	return &out, nil
}

func (s *SubstrateRPC) SubmitRaw(ctx context.Context, raw string) (*Inclusion, error) {
	var out Inclusion
	if err := s.post(ctx, "/transaction", map[string]interface{}{"raw": raw}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SubstrateRPC) BlockEvents(ctx context.Context, blockRef string) ([]Event, error) {
	var out eventsResponse
	if err := s.get(ctx, "/blocks/"+url.PathEscape(blockRef)+"/events", nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (s *SubstrateRPC) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var out headResponse
	if err := s.get(ctx, "/blocks/head", nil, &out); err != nil {
		return 0, err
	}
	return out.Number, nil
}

func (s *SubstrateRPC) QueryContract(ctx context.Context, contract, method, caller string, args []interface{}) (json.RawMessage, error) {
	var out queryResponse
	body := map[string]interface{}{"contract": contract, "method": method, "caller": caller, "args": args}
	if err := s.post(ctx, "/contracts/query", body, &out); err != nil {
		return nil, err
	}
	return json.RawMessage(out.Output), nil
}

// WaitForEvent scans every block from fromBlock on until match returns true or ctx ends.
func (s *SubstrateRPC) WaitForEvent(ctx context.Context, fromBlock uint64, interval time.Duration, match func(Event) bool) (*Event, error) {
	next := fromBlock
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		head, err := s.LatestBlockNumber(ctx)
		if err != nil {
			s.logger.Debug("[SubstrateRPC.WaitForEvent] head lookup failed", map[string]string{"chain": s.chain, "error": err.Error()})
		}
		for err == nil && next <= head {
			events, evErr := s.BlockEvents(ctx, strconv.FormatUint(next, 10))
			if evErr != nil {
				break
			}
			for i := range events {
				if match(events[i]) {
					return &events[i], nil
				}
			}
			next++
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *SubstrateRPC) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	var gwErr gatewayError
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		SetError(&gwErr).
		Get(path)
	return s.check(resp, err, gwErr)
}

func (s *SubstrateRPC) post(ctx context.Context, path string, body, out interface{}) error {
	var gwErr gatewayError
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		SetError(&gwErr).
		Post(path)
	return s.check(resp, err, gwErr)
}

func (s *SubstrateRPC) check(resp *resty.Response, err error, gwErr gatewayError) error {
	if err != nil {
		return errors.Wrapf(err, "%s gateway request failed", s.chain)
	}
	if resp.IsError() {
		return classifyGatewayError(resp.StatusCode(), gwErr)
	}
	return nil
}
