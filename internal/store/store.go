// Package store persists saga diagnostics, assembled composite agents and
// the last known connection statuses.
package store

import (
	"context"

	"agentai-console/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RecordRun saves a run with its steps. When the run succeeded the
// composite it assembled is saved in the same transaction.
func (s *Store) RecordRun(ctx context.Context, run *models.SagaRun, composite *models.CompositeAgent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return errors.Wrap(err, "insert saga run")
		}
		if composite == nil {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(composite).Error; err != nil {
			return errors.Wrap(err, "upsert composite agent")
		}
		return nil
	})
}

// ListRuns returns the newest runs first, with their steps in call order.
func (s *Store) ListRuns(ctx context.Context, limit int, outcome string) ([]models.SagaRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Order("started_at DESC").
		Limit(limit)
	if outcome != "" {
		q = q.Where("outcome = ?", outcome)
	}

	var runs []models.SagaRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, errors.Wrap(err, "list saga runs")
	}
	return runs, nil
}

func (s *Store) ListComposites(ctx context.Context, businessID int) ([]models.CompositeAgent, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if businessID > 0 {
		q = q.Where("business_id = ?", businessID)
	}

	var out []models.CompositeAgent
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list composite agents")
	}
	return out, nil
}

func (s *Store) RenameComposite(ctx context.Context, agentID int, name string) error {
	err := s.db.WithContext(ctx).Model(&models.CompositeAgent{}).
		Where("agent_id = ?", agentID).
		Update("name", name).Error
	return errors.Wrap(err, "rename composite agent")
}

func (s *Store) RemoveComposite(ctx context.Context, agentID int) error {
	err := s.db.WithContext(ctx).Delete(&models.CompositeAgent{}, "agent_id = ?", agentID).Error
	return errors.Wrap(err, "remove composite agent")
}

// DetachChatbot clears a deleted chatbot from any composite that used it.
func (s *Store) DetachChatbot(ctx context.Context, chatbotID int) error {
	err := s.db.WithContext(ctx).Model(&models.CompositeAgent{}).
		Where("chatbot_id = ?", chatbotID).
		Update("chatbot_id", nil).Error
	return errors.Wrap(err, "detach chatbot")
}

// DetachConnection clears a deleted connection. column is connection_wa_id
// or connection_ig_id.
func (s *Store) DetachConnection(ctx context.Context, column string, connectionID int) error {
	if column != "connection_wa_id" && column != "connection_ig_id" {
		return errors.Errorf("unknown connection column %q", column)
	}
	err := s.db.WithContext(ctx).Model(&models.CompositeAgent{}).
		Where(column+" = ?", connectionID).
		Update(column, nil).Error
	return errors.Wrap(err, "detach connection")
}

func (s *Store) UpsertConnectionStatus(ctx context.Context, connectionID int, status string) error {
	row := models.ConnectionStatus{ConnectionID: connectionID, Status: status}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "connection_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&row).Error
	return errors.Wrap(err, "upsert connection status")
}

func (s *Store) ListConnectionStatuses(ctx context.Context) ([]models.ConnectionStatus, error) {
	var out []models.ConnectionStatus
	if err := s.db.WithContext(ctx).Order("connection_id ASC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list connection statuses")
	}
	return out, nil
}
