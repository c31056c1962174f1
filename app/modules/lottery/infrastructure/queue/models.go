package lotteryqueue

import "github.com/google/uuid"

// DrawJobKind is the River kind of DrawJob.
const DrawJobKind = "lottery_draw"

// DrawJob asks for a round to be drawn at its draw time.
type DrawJob struct {
	LotteryID   uuid.UUID `json:"lottery_id"`
	RoundNumber uint64    `json:"round_number"`
}

// Kind returns the job type identifier for River
func (DrawJob) Kind() string { return DrawJobKind }

// JobInfo represents information about a scheduled job (for debugging/monitoring)
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	LotteryID   string `json:"lottery_id"`
	RoundNumber uint64 `json:"round_number"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
	CreatedAt   string `json:"created_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
