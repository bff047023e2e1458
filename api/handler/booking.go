package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/booking"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/config"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/events"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/matcher"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/proxy"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/session"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/webhook"
)

// jobStore holds all in-flight and completed booking jobs.
var jobStore sync.Map

func init() {
	// Background goroutine to expire booking jobs older than 24 hours.
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-24 * time.Hour).Unix()
			jobStore.Range(func(key, value any) bool {
				job := value.(*models.BookingJob)
				if job.CreatedAt < cutoff {
					jobStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostBooking returns a handler for POST /api/v1/bookings.
// It validates the request, registers a job, and runs the booking loop in
// the background; the response carries the job ID to poll.
func PostBooking(pool *proxy.Pool, runner session.Runner, m *matcher.Matcher, sink *events.Sink, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		jobID := "book-" + uuid.NewString()
		job := &models.BookingJob{
			ID:        jobID,
			Status:    "processing",
			CreatedAt: time.Now().Unix(),
		}
		jobStore.Store(jobID, job)

		go runBooking(pool, runner, m, sink, cfg, job, &req)

		c.JSON(http.StatusAccepted, models.BookingJobResponse{
			ID:     jobID,
			Status: job.Status,
		})
	}
}

// GetBooking returns a handler for GET /api/v1/bookings/:id.
func GetBooking() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := jobStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "booking job not found",
				},
			})
			return
		}

		job := val.(*models.BookingJob)
		c.JSON(http.StatusOK, models.BookingStatusResponse{
			ID:     job.ID,
			Status: job.Status,
			Result: job.Result,
			Error:  job.Error,
		})
	}
}

// runBooking drives one booking job to completion and records the outcome.
func runBooking(pool *proxy.Pool, runner session.Runner, m *matcher.Matcher, sink *events.Sink, cfg *config.Config, job *models.BookingJob, req *models.BookingRequest) {
	o := booking.New(pool, runner, m, sink, booking.Config{
		TargetCenter:   req.TargetCenter,
		MaxAttempts:    req.MaxAttempts,
		PoolThreshold:  req.PoolThreshold,
		AttemptTimeout: cfg.Booking.AttemptTimeout,
		RetryInterval:  cfg.Booking.RetryInterval,
	})

	res := o.Run(context.Background(), &req.Candidate)

	job.Result = res
	if res.Matched {
		job.Status = "matched"
	} else {
		job.Status = "abandoned"
		job.Error = &models.ErrorDetail{
			Code:    models.ErrCodeBudgetExhausted,
			Message: "retry budget exhausted without matching the target center",
		}
	}

	webhook.NotifyBooking(cfg.Webhook.URL, cfg.Webhook.Secret, job.ID, res)
}
