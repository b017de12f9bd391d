package job

import (
	"context"
	"errors"

	"github.com/narratize/audiobook-engine/internal/shared"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Job{})
}

func (s *Store) Create(ctx context.Context, j *Job) error {
	if j.ID == "" {
		j.ID = shared.NewID("job_")
	}
	if j.Status == "" {
		j.Status = StatusPending
	}
	return s.db.WithContext(ctx).Create(j).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &j, err
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]*Job, error) {
	var jobs []*Job
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error
	return jobs, err
}

func (s *Store) Update(ctx context.Context, j *Job) error {
	return s.db.WithContext(ctx).Save(j).Error
}

func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	result := s.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
