package rampstate

import (
	"gorm.io/gorm"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

type IStore interface {
	Upsert(tx *gorm.DB, record *model.RampStateRecord) error
	// Insert creates the row only when the session has none. It reports whether a row was written.
	Insert(tx *gorm.DB, record *model.RampStateRecord) (bool, error)
	// ReplaceFinished overwrites the session's row only while it holds a successful flow.
	ReplaceFinished(tx *gorm.DB, record *model.RampStateRecord) (bool, error)
	GetBySessionID(tx *gorm.DB, sessionID string) (*model.RampStateRecord, error)
	Delete(tx *gorm.DB, sessionID string) error
	ListActive(tx *gorm.DB) ([]model.RampStateRecord, error)
}
