package ephemeral

import (
	"context"
	"math/big"
	"time"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/poll"
)

// BalanceFunc reads one balance of one account.
type BalanceFunc func(ctx context.Context) (*big.Int, error)

// WaitForBalance blocks until the balance reaches min. Read errors are logged and retried; only
// ctx ends the wait.
func WaitForBalance(ctx context.Context, l *logger.Logger, what string, read BalanceFunc, min *big.Int, interval time.Duration) (*big.Int, error) {
	var last *big.Int
	err := poll.Until(ctx, interval, func(ctx context.Context) (bool, error) {
		balance, err := read(ctx)
		if err != nil {
			l.Debug("[ephemeral.WaitForBalance] balance read failed", map[string]string{
				"what":  what,
				"error": err.Error(),
			})
			return false, nil
		}
		last = balance
		return balance.Cmp(min) >= 0, nil
	})
	if err != nil {
		return last, err
	}
	return last, nil
}
