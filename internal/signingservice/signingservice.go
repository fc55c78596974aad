package signingservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

type SigningService struct {
	client *resty.Client
	logger *logger.Logger
}

func New(baseURL, apiKey string, timeout time.Duration, logger *logger.Logger) ISigningService {
	return &SigningService{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("X-Api-Key", apiKey),
		logger: logger,
	}
}

func (s *SigningService) CreateEphemeralFunding(ctx context.Context, req FundingRequest) error {
	if err := s.post(ctx, "/v1/ephemeral/fund", req, nil); err != nil {
		return err
	}
	s.logger.Info("[SigningService.CreateEphemeralFunding] ephemeral funded", map[string]string{
		"chain":   req.Chain,
		"address": req.Address,
	})
	return nil
}

func (s *SigningService) CosignPayout(ctx context.Context, req CosignRequest) (*CosignResponse, error) {
	var out CosignResponse
	if err := s.post(ctx, "/v1/stellar/cosign", req, &out); err != nil {
		return nil, err
	}
	if len(out.Signatures) != 2 {
		return nil, fmt.Errorf("cosign returned %d signatures, want 2", len(out.Signatures))
	}
	return &out, nil
}

func (s *SigningService) ExecuteBridgeCompletion(ctx context.Context, receiverID, payload string) (string, error) {
	var out bridgeCompletionResponse
	body := map[string]string{"id": receiverID, "payload": payload}
	if err := s.post(ctx, "/v1/moonbeam/execute-xcm", body, &out); err != nil {
		return "", err
	}
	s.logger.Info("[SigningService.ExecuteBridgeCompletion] completion submitted", map[string]string{
		"receiverId": receiverID,
		"txHash":     out.TxHash,
	})
	return out.TxHash, nil
}

func (s *SigningService) Subsidize(ctx context.Context, req SubsidyRequest) error {
	if err := s.post(ctx, "/v1/subsidize", req, nil); err != nil {
		return err
	}
	s.logger.Info("[SigningService.Subsidize] subsidy sent", map[string]string{
		"chain":     req.Chain,
		"address":   req.Address,
		"asset":     req.Asset,
		"amountRaw": req.AmountRaw,
	})
	return nil
}

func (s *SigningService) FundingAccounts(ctx context.Context) (map[string]string, error) {
	var out fundingAccountsResponse
	var apiErr errorResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/v1/funding-accounts")
	if err := check(resp, err, apiErr); err != nil {
		return nil, err
	}

	accounts := make(map[string]string, len(out))
	for chain, acc := range out {
		accounts[chain] = acc.Public
	}
	return accounts, nil
}

func (s *SigningService) post(ctx context.Context, path string, body, out interface{}) error {
	var apiErr errorResponse
	req := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Post(path)
	return check(resp, err, apiErr)
}

func check(resp *resty.Response, err error, apiErr errorResponse) error {
	if err != nil {
		return errors.Wrap(err, "signing service request failed")
	}
	if resp.IsError() {
		return classifyResponse(resp.StatusCode(), apiErr)
	}
	return nil
}
