package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PostJobStatusQueued     = "queued"
	PostJobStatusPublishing = "publishing"
	PostJobStatusDone       = "done"
	PostJobStatusFailed     = "failed"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// PostJob is one scheduled Instagram post. Created queued by the HTTP API,
// mutated only by the scheduler afterwards. Transitions are forward-only:
// queued -> publishing -> done|failed.
type PostJob struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Account          string         `json:"account" gorm:"not null;index"`
	Caption          string         `json:"caption" gorm:"type:text"`
	MediaURL         string         `json:"media_url" gorm:"not null"`
	MediaType        string         `json:"media_type" gorm:"not null"`
	ScheduledAt      time.Time      `json:"scheduled_at" gorm:"not null;index"`
	Status           string         `json:"status" gorm:"not null;index;default:queued"`
	Attempts         int            `json:"attempts" gorm:"not null;default:0"`
	LastError        string         `json:"last_error,omitempty" gorm:"type:text"`
	LastErrorPayload datatypes.JSON `json:"last_error_payload,omitempty"`
	ExternalMediaID  string         `json:"external_media_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (PostJob) TableName() string {
	return "post_jobs"
}

// Terminal reports whether the scheduler will never touch this job again.
func (j *PostJob) Terminal() bool {
	return j.Status == PostJobStatusDone || j.Status == PostJobStatusFailed
}
