package submittedtransaction

import (
	"gorm.io/gorm"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, submitted *model.SubmittedTransaction) error
	Get(tx *gorm.DB, sessionID string, role model.TxRole) (*model.SubmittedTransaction, error)
	DeleteBySession(tx *gorm.DB, sessionID string) error
}
