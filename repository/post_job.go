package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/auroramedia/gramflow/entity"
)

type PostJobRepository struct {
	db *gorm.DB
}

func NewPostJobRepository(db *gorm.DB) *PostJobRepository {
	return &PostJobRepository{db: db}
}

func (r *PostJobRepository) Create(job *entity.PostJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = entity.PostJobStatusQueued
	}
	return r.db.Create(job).Error
}

func (r *PostJobRepository) FindByID(id uuid.UUID) (*entity.PostJob, error) {
	var job entity.PostJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindDue returns queued jobs whose schedule time has passed, earliest
// first, capped at limit to bound per-tick work. A pure read: calling it
// twice without state changes yields the same set.
func (r *PostJobRepository) FindDue(now time.Time, limit int) ([]entity.PostJob, error) {
	var jobs []entity.PostJob
	err := r.db.
		Where("status = ? AND scheduled_at <= ?", entity.PostJobStatusQueued, now.UTC()).
		Order("scheduled_at asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimForPublish moves one queued job into publishing and counts the
// attempt. The guarded single-statement UPDATE keeps the transition atomic:
// a job another writer already advanced is not claimed twice.
func (r *PostJobRepository) ClaimForPublish(id uuid.UUID) (bool, error) {
	res := r.db.Model(&entity.PostJob{}).
		Where("id = ? AND status = ?", id, entity.PostJobStatusQueued).
		Updates(map[string]interface{}{
			"status":   entity.PostJobStatusPublishing,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostJobRepository) Update(job *entity.PostJob) error {
	return r.db.Save(job).Error
}

// List returns all jobs, newest schedule first, optionally filtered by
// status.
func (r *PostJobRepository) List(status string) ([]entity.PostJob, error) {
	var jobs []entity.PostJob
	q := r.db.Order("scheduled_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
