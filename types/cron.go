package types

import (
	"time"

	"github.com/robfig/cron/v3"
)

type JobEntry struct {
	ID           cron.EntryID
	Name         string
	Spec         string
	Job          func()
	AddedAt      time.Time
	LastRun      time.Time
	LastDuration time.Duration
	RunCount     int64
}
