package job

import (
	"time"

	"github.com/narratize/audiobook-engine/internal/shared"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one synthesis run, from accepted request through merged audio.
type Job struct {
	ID     string `gorm:"primaryKey" json:"id"`
	Mode   string `gorm:"not null" json:"mode"`
	Status Status `gorm:"not null;index" json:"status"`

	Language  string `json:"language"`
	VoiceName string `json:"voice_name"`
	Backend   string `json:"backend"`

	TotalChunks  int             `gorm:"default:0" json:"total_chunks"`
	Succeeded    int             `gorm:"default:0" json:"succeeded"`
	FailedChunks shared.IntSlice `gorm:"type:json" json:"failed_chunks,omitempty"`
	CacheHits    int             `gorm:"default:0" json:"cache_hits"`
	InputBytes   int             `gorm:"default:0" json:"input_bytes"`

	ElapsedMs       int64  `gorm:"default:0" json:"elapsed_ms"`
	AudioDurationMs int64  `gorm:"default:0" json:"audio_duration_ms"`
	OutputPath      string `json:"-"`

	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) Terminal() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}
