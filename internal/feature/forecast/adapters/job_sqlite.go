package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"stock_forecast/internal/feature/forecast/domain/entity"
	"stock_forecast/internal/feature/forecast/usecase"
	"stock_forecast/internal/shared/apperr"
)

type jobSQLite struct {
	db *gorm.DB
}

var _ usecase.JobRepository = (*jobSQLite)(nil)

func NewJobRepository(db *gorm.DB) *jobSQLite {
	return &jobSQLite{db: db}
}

type JobModel struct {
	ID           string                 `gorm:"primaryKey;size:36"`
	Symbol       string                 `gorm:"size:32;not null"`
	Days         int                    `gorm:"not null"`
	Status       string                 `gorm:"size:16;not null;index:job_status_updated,priority:1"`
	Result       *entity.ForecastResult `gorm:"type:text;serializer:json"`
	ErrorKind    string                 `gorm:"size:32"`
	ErrorMessage string
	CreatedAt    time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime:false;index:job_status_updated,priority:2"`
}

func (JobModel) TableName() string {
	return "forecast_jobs"
}

func toModel(e entity.Job) JobModel {
	return JobModel{
		ID:           e.ID,
		Symbol:       e.Symbol,
		Days:         e.Days,
		Status:       string(e.Status),
		Result:       e.Result,
		ErrorKind:    e.ErrorKind,
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toEntity(m JobModel) entity.Job {
	return entity.Job{
		ID:           m.ID,
		Symbol:       m.Symbol,
		Days:         m.Days,
		Status:       entity.JobStatus(m.Status),
		Result:       m.Result,
		ErrorKind:    m.ErrorKind,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (r *jobSQLite) Create(ctx context.Context, job entity.Job) error {
	m := toModel(job)
	return r.db.WithContext(ctx).Create(&m).Error
}

// Update は全カラムを書き換えます。存在しないIDはapperr.ErrNotFoundになります。
func (r *jobSQLite) Update(ctx context.Context, job entity.Job) error {
	m := toModel(job)
	res := r.db.WithContext(ctx).Model(&JobModel{}).Where("id = ?", job.ID).
		Select("*").Omit("id", "created_at").Updates(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("job %s: %w", job.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *jobSQLite) Get(ctx context.Context, id string) (entity.Job, error) {
	var m JobModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Job{}, fmt.Errorf("job %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return entity.Job{}, err
	}
	return toEntity(m), nil
}

func (r *jobSQLite) DeleteFinishedBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []string{string(entity.JobDone), string(entity.JobFailed)}, before).
		Delete(&JobModel{})
	return res.RowsAffected, res.Error
}
