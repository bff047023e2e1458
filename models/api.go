package models

// BookingRequest is the payload for POST /api/v1/bookings.
type BookingRequest struct {
	// Candidate is the applicant record to submit. Required.
	Candidate Candidate `json:"candidate" binding:"required"`

	// TargetCenter is the exact, case-sensitive medical center name that
	// must be assigned for the booking to be accepted. Required.
	TargetCenter string `json:"target_center" binding:"required"`

	// MaxAttempts caps the retry budget. Default: 30.
	MaxAttempts int `json:"max_attempts,omitempty" binding:"omitempty,min=1,max=500"`

	// PoolThreshold is the minimum pool size to maintain before each
	// attempt. Default: 5.
	PoolThreshold int `json:"pool_threshold,omitempty" binding:"omitempty,min=1,max=200"`
}

// Defaults applies default values to unset fields.
func (r *BookingRequest) Defaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 30
	}
	if r.PoolThreshold == 0 {
		r.PoolThreshold = 5
	}
}

// BookingJob tracks one in-flight or completed booking run.
type BookingJob struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"` // "processing", "matched", "abandoned", "failed"
	Result    *BookingResult `json:"result,omitempty"`
	Error     *ErrorDetail   `json:"error,omitempty"`
	CreatedAt int64          `json:"created_at"`
}

// BookingJobResponse is returned by POST /api/v1/bookings.
type BookingJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// BookingStatusResponse is returned by GET /api/v1/bookings/:id.
type BookingStatusResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Result *BookingResult `json:"result,omitempty"`
	Error  *ErrorDetail   `json:"error,omitempty"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status        string    `json:"status"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Pool          PoolStats `json:"pool"`
}
