package usertransaction

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

type Store struct {
}

func New() IStore {
	return &Store{}
}

func (s *Store) Upsert(tx *gorm.DB, userTx *model.UserTransaction) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"tx_hash", "raw_extrinsic"}),
	}).Create(userTx).Error
}

func (s *Store) ListBySession(tx *gorm.DB, sessionID string) ([]model.UserTransaction, error) {
	var txs []model.UserTransaction
	err := tx.Where("session_id = ?", sessionID).Order("id ASC").Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) DeleteBySession(tx *gorm.DB, sessionID string) error {
	return tx.Where("session_id = ?", sessionID).Delete(&model.UserTransaction{}).Error
}
