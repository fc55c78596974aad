package model

import "time"

// SubmittedTransaction is the last-submitted index consulted before any broadcast.
type SubmittedTransaction struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID string    `gorm:"column:session_id;type:varchar(64);not null;uniqueIndex:idx_submitted_session_role"`
	Role      TxRole    `gorm:"column:role;type:varchar(50);not null;uniqueIndex:idx_submitted_session_role"`
	Chain     string    `gorm:"column:chain;type:varchar(20);not null"`
	TxHash    string    `gorm:"column:tx_hash;type:varchar(130);not null"`
	Nonce     int64     `gorm:"column:nonce"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (SubmittedTransaction) TableName() string {
	return "submitted_transactions"
}
