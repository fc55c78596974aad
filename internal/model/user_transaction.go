package model

import "time"

type UserTransactionKind string

const (
	UserTxSquidApprove UserTransactionKind = "squidApprove"
	UserTxSquidSwap    UserTransactionKind = "squidSwap"
	UserTxAssetHubXcm  UserTransactionKind = "assetHubXcm"
)

// UserTransaction records a transaction signed by the user's wallet. Squid transactions are
// broadcast by the wallet and only the hash is known; the AssetHub extrinsic is handed over signed
// and broadcast by the engine.
type UserTransaction struct {
	ID           uint                `gorm:"primaryKey"`
	SessionID    string              `gorm:"column:session_id;type:varchar(64);not null;uniqueIndex:idx_user_tx_session_kind"`
	Kind         UserTransactionKind `gorm:"column:kind;type:varchar(30);not null;uniqueIndex:idx_user_tx_session_kind"`
	TxHash       string              `gorm:"column:tx_hash;type:varchar(130);not null"`
	RawExtrinsic string              `gorm:"column:raw_extrinsic;type:text"`
	CreatedAt    time.Time           `gorm:"column:created_at"`
}

func (UserTransaction) TableName() string {
	return "user_transactions"
}
