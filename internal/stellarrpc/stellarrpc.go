package stellarrpc

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/stellar/go/amount"
	"github.com/stellar/go/clients/horizonclient"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

type StellarRPC struct {
	client     *horizonclient.Client
	passphrase string
	logger     *logger.Logger
}

func New(horizonURL, passphrase string, timeout time.Duration, logger *logger.Logger) IStellarRPC {
	if !strings.HasSuffix(horizonURL, "/") {
		horizonURL += "/"
	}
	return &StellarRPC{
		client: &horizonclient.Client{
			HorizonURL: horizonURL,
			HTTP:       &http.Client{Timeout: timeout},
		},
		passphrase: passphrase,
		logger:     logger,
	}
}

func (s *StellarRPC) NetworkPassphrase() string {
	return s.passphrase
}

func (s *StellarRPC) AccountExists(ctx context.Context, address string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := s.client.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if horizonclient.IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "load stellar account %s", address)
	}
	return true, nil
}

func (s *StellarRPC) SequenceNumber(ctx context.Context, address string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	acc, err := s.client.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if err != nil {
		return 0, errors.Wrapf(err, "load stellar account %s", address)
	}
	return acc.GetSequenceNumber()
}

func (s *StellarRPC) AssetBalance(ctx context.Context, address, code, issuer string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	acc, err := s.client.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if err != nil {
		return 0, errors.Wrapf(err, "load stellar account %s", address)
	}

	var balance string
	if issuer == "" {
		if balance, err = acc.GetNativeBalance(); err != nil {
			return 0, err
		}
	} else {
		balance = acc.GetCreditBalance(code, issuer)
	}
	if balance == "" {
		return 0, nil
	}
	return amount.ParseInt64(balance)
}

func (s *StellarRPC) SubmitXDR(ctx context.Context, envelope string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := s.client.SubmitTransactionXDR(envelope)
	if err != nil {
		return "", classifySubmitError(err)
	}

	s.logger.Info("[StellarRPC.SubmitXDR] transaction submitted", map[string]string{
		"hash":   resp.Hash,
		"ledger": strconv.FormatInt(int64(resp.Ledger), 10),
	})
	return resp.Hash, nil
}
