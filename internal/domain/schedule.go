package domain

import "time"

// JobScheduler is a persisted recurring-job definition. Key is the stable
// identity used to dedup registrations across process restarts; Every is
// the tick interval in milliseconds.
type JobScheduler struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Every     int64     `json:"every"`
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updated_at"`
}
