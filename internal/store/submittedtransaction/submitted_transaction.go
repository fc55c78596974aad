package submittedtransaction

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

// Create keeps the first recorded broadcast for a (session, role) pair.
func (s *Store) Create(tx *gorm.DB, submitted *model.SubmittedTransaction) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(submitted).Error
}

func (s *Store) Get(tx *gorm.DB, sessionID string, role model.TxRole) (*model.SubmittedTransaction, error) {
	var submitted model.SubmittedTransaction
	err := tx.Where("session_id = ? AND role = ?", sessionID, role).First(&submitted).Error
	if err != nil {
		return nil, err
	}
	return &submitted, nil
}

func (s *Store) DeleteBySession(tx *gorm.DB, sessionID string) error {
	return tx.Where("session_id = ?", sessionID).Delete(&model.SubmittedTransaction{}).Error
}
