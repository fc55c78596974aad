package usertransaction

import (
	"gorm.io/gorm"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

type IStore interface {
	Upsert(tx *gorm.DB, userTx *model.UserTransaction) error
	ListBySession(tx *gorm.DB, sessionID string) ([]model.UserTransaction, error)
	DeleteBySession(tx *gorm.DB, sessionID string) error
}
