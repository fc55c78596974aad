package rampstate

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

func (s *Store) Upsert(tx *gorm.DB, record *model.RampStateRecord) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"flow_type", "phase", "in_progress", "failure_kind", "state", "updated_at"}),
	}).Create(record).Error
}

func (s *Store) Insert(tx *gorm.DB, record *model.RampStateRecord) (bool, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ReplaceFinished(tx *gorm.DB, record *model.RampStateRecord) (bool, error) {
	res := tx.Model(&model.RampStateRecord{}).
		Where("session_id = ? AND phase = ?", record.SessionID, string(model.PhaseSuccess)).
		Updates(map[string]interface{}{
			"flow_type":    record.FlowType,
			"phase":        record.Phase,
			"in_progress":  record.InProgress,
			"failure_kind": record.FailureKind,
			"state":        record.State,
			"created_at":   record.CreatedAt,
			"updated_at":   record.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) GetBySessionID(tx *gorm.DB, sessionID string) (*model.RampStateRecord, error) {
	var record model.RampStateRecord
	err := tx.Where("session_id = ?", sessionID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Store) Delete(tx *gorm.DB, sessionID string) error {
	return tx.Where("session_id = ?", sessionID).Delete(&model.RampStateRecord{}).Error
}

// ListActive returns flows that are neither finished nor halted by a failure.
func (s *Store) ListActive(tx *gorm.DB) ([]model.RampStateRecord, error) {
	var records []model.RampStateRecord
	err := tx.Where("phase <> ? AND (failure_kind IS NULL OR failure_kind = '')", string(model.PhaseSuccess)).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
