package phase

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"gorm.io/gorm"

	"github.com/pendulum-chain/vortex-sub005/internal/brla"
	"github.com/pendulum-chain/vortex-sub005/internal/evmrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/pendulum"
	"github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/signingservice"
	"github.com/pendulum-chain/vortex-sub005/internal/squidrouter"
	"github.com/pendulum-chain/vortex-sub005/internal/stellarrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/store"
	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

// ISubmissionIndex remembers the last broadcast per (session, role) so a resumed phase never
// broadcasts the same role twice.
type ISubmissionIndex interface {
	// Get returns nil without error when nothing was recorded.
	Get(ctx context.Context, sessionID string, role model.TxRole) (*model.SubmittedTransaction, error)
	Record(ctx context.Context, submitted *model.SubmittedTransaction) error
}

// IUserTransactions exposes what the user's wallet signed for a session.
type IUserTransactions interface {
	List(ctx context.Context, sessionID string) ([]model.UserTransaction, error)
}

type Config struct {
	PollInterval time.Duration
	// PendulumFundingMinimumRaw is the native balance an ephemeral needs to pay its fees.
	PendulumFundingMinimumRaw *big.Int
	MoonbeamReceiver          string
	XTokensPrecompile         string
	StellarBaseFee            int64
	RedeemTimeout             time.Duration
	StellarMaxTime            time.Duration
	SwapDeadline              time.Duration
	MoonbeamGasLimit          uint64
	XcmWeight                 uint64
}

// ExecutionContext is the read-only set of collaborators every phase handler runs against.
type ExecutionContext struct {
	Pendulum  substraterpc.ISubstrateRPC
	AssetHub  substraterpc.ISubstrateRPC
	Moonbeam  evmrpc.IEvmRPC
	Stellar   stellarrpc.IStellarRPC
	Signing   signingservice.ISigningService
	Nabla     pendulum.INabla
	Spacewalk pendulum.ISpacewalk
	Squid     squidrouter.ISquidRouter
	BRLA      brla.IBRLA
	Submitted ISubmissionIndex
	UserTxs   IUserTransactions
	Auditor   ramp.IAuditor
	Clock     clock.Clock
	Logger    *logger.Logger
	Config    Config
}

// StoreIndex is the postgres backed ISubmissionIndex and IUserTransactions.
type StoreIndex struct {
	db    *gorm.DB
	store *store.Store
}

func NewStoreIndex(db *gorm.DB, s *store.Store) *StoreIndex {
	return &StoreIndex{db: db, store: s}
}

func (i *StoreIndex) Get(ctx context.Context, sessionID string, role model.TxRole) (*model.SubmittedTransaction, error) {
	submitted, err := i.store.SubmittedTransaction.Get(i.db.WithContext(ctx), sessionID, role)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return submitted, err
}

func (i *StoreIndex) Record(ctx context.Context, submitted *model.SubmittedTransaction) error {
	return i.store.SubmittedTransaction.Create(i.db.WithContext(ctx), submitted)
}

func (i *StoreIndex) List(ctx context.Context, sessionID string) ([]model.UserTransaction, error) {
	return i.store.UserTransaction.ListBySession(i.db.WithContext(ctx), sessionID)
}

// SaveUserTransaction replaces any earlier transaction of the same kind for the session.
func (i *StoreIndex) SaveUserTransaction(ctx context.Context, userTx *model.UserTransaction) error {
	return i.store.UserTransaction.Upsert(i.db.WithContext(ctx), userTx)
}

// MemoryIndex keeps submissions and user transactions in process.
type MemoryIndex struct {
	mu        sync.Mutex
	submitted map[string]model.SubmittedTransaction
	userTxs   map[string][]model.UserTransaction
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		submitted: map[string]model.SubmittedTransaction{},
		userTxs:   map[string][]model.UserTransaction{},
	}
}

func (i *MemoryIndex) Get(_ context.Context, sessionID string, role model.TxRole) (*model.SubmittedTransaction, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	submitted, ok := i.submitted[sessionID+"/"+string(role)]
	if !ok {
		return nil, nil
	}
	return &submitted, nil
}

func (i *MemoryIndex) Record(_ context.Context, submitted *model.SubmittedTransaction) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	key := submitted.SessionID + "/" + string(submitted.Role)
	if _, ok := i.submitted[key]; !ok {
		i.submitted[key] = *submitted
	}
	return nil
}

func (i *MemoryIndex) List(_ context.Context, sessionID string) ([]model.UserTransaction, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]model.UserTransaction(nil), i.userTxs[sessionID]...), nil
}

func (i *MemoryIndex) SaveUserTransaction(_ context.Context, userTx *model.UserTransaction) error {
	i.AddUserTransaction(*userTx)
	return nil
}

// AddUserTransaction replaces any earlier transaction of the same kind.
func (i *MemoryIndex) AddUserTransaction(userTx model.UserTransaction) {
	i.mu.Lock()
	defer i.mu.Unlock()
	txs := i.userTxs[userTx.SessionID]
	for idx := range txs {
		if txs[idx].Kind == userTx.Kind {
			txs[idx] = userTx
			return
		}
	}
	i.userTxs[userTx.SessionID] = append(txs, userTx)
}
