package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// bookingJobResponse mirrors the Wafid API job creation response.
type bookingJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// bookingStatusResponse mirrors the Wafid API job status response.
type bookingStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result *struct {
		Matched  bool   `json:"matched"`
		Attempts int    `json:"attempts"`
		Center   string `json:"center"`
		Artifact *struct {
			Ref        string `json:"ref"`
			CapturedAt string `json:"captured_at"`
		} `json:"artifact"`
	} `json:"result"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// poolStatsResponse mirrors the Wafid API pool stats response.
type poolStatsResponse struct {
	Available int `json:"available"`
	Leased    int `json:"leased"`
}

// candidateFields are the applicant attributes accepted by book_appointment.
var candidateFields = []string{
	"first_name", "last_name", "date_of_birth", "gender", "marital_status",
	"nationality", "passport_number", "passport_issue_date",
	"passport_issue_place", "passport_expiry_date", "visa_type", "email",
	"phone", "national_id", "position", "country", "city", "traveling_to",
}

func main() {
	apiURL := os.Getenv("WAFID_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("WAFID_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "WAFID_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"wafid",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	bookTool := mcp.NewTool("book_appointment",
		mcp.WithDescription("Book a medical appointment for a candidate, retrying until the requested medical center is assigned or the attempt budget runs out. Blocks until the run finishes."),
		mcp.WithString("target_center",
			mcp.Required(),
			mcp.Description("Exact, case-sensitive name of the medical center that must be assigned"),
		),
		mcp.WithString("first_name", mcp.Required(), mcp.Description("Candidate first name")),
		mcp.WithString("last_name", mcp.Required(), mcp.Description("Candidate last name")),
		mcp.WithString("passport_number", mcp.Required(), mcp.Description("Candidate passport number")),
		mcp.WithString("nationality", mcp.Description("Candidate nationality")),
		mcp.WithString("date_of_birth", mcp.Description("Candidate date of birth (YYYY-MM-DD)")),
		mcp.WithString("gender", mcp.Description("Candidate gender")),
		mcp.WithString("marital_status", mcp.Description("Candidate marital status")),
		mcp.WithString("passport_issue_date", mcp.Description("Passport issue date (YYYY-MM-DD)")),
		mcp.WithString("passport_issue_place", mcp.Description("Passport issue place")),
		mcp.WithString("passport_expiry_date", mcp.Description("Passport expiry date (YYYY-MM-DD)")),
		mcp.WithString("visa_type", mcp.Description("Visa type, e.g. 'Work'")),
		mcp.WithString("email", mcp.Description("Candidate email address")),
		mcp.WithString("phone", mcp.Description("Candidate phone number")),
		mcp.WithString("national_id", mcp.Description("Candidate national ID")),
		mcp.WithString("position", mcp.Description("Position applied for")),
		mcp.WithString("country", mcp.Description("Country of the appointment")),
		mcp.WithString("city", mcp.Description("City of the appointment")),
		mcp.WithString("traveling_to", mcp.Description("GCC country the candidate is traveling to")),
		mcp.WithNumber("max_attempts",
			mcp.Description("Maximum booking attempts before abandoning (default: 30, max: 500)"),
		),
	)
	s.AddTool(bookTool, handleBookAppointment(apiURL, apiKey))

	statusTool := mcp.NewTool("booking_status",
		mcp.WithDescription("Check the status of a previously created booking job."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The booking job ID returned by book_appointment"),
		),
	)
	s.AddTool(statusTool, handleBookingStatus(apiURL, apiKey))

	poolTool := mcp.NewTool("pool_status",
		mcp.WithDescription("Report the proxy pool's current size: validated proxies available and proxies leased to in-flight attempts."),
	)
	s.AddTool(poolTool, handlePoolStatus(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the Wafid API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// apiGet sends a GET request to the Wafid API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := apiGet(ctx, client, apiURL, apiKey, endpoint)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			// Quick check if still processing.
			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}

func handleBookAppointment(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		targetCenter, err := request.RequireString("target_center")
		if err != nil {
			return mcp.NewToolResultError("target_center is required"), nil
		}

		candidate := make(map[string]string, len(candidateFields))
		for _, f := range candidateFields {
			if v := request.GetString(f, ""); v != "" {
				candidate[f] = v
			}
		}
		for _, required := range []string{"first_name", "last_name", "passport_number"} {
			if candidate[required] == "" {
				return mcp.NewToolResultError(required + " is required"), nil
			}
		}

		payload := map[string]interface{}{
			"candidate":     candidate,
			"target_center": targetCenter,
		}
		if maxAttempts, ok := request.GetArguments()["max_attempts"]; ok {
			payload["max_attempts"] = maxAttempts
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/bookings", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("booking request failed: %v", err)), nil
		}

		var jobResp bookingJobResponse
		if err := json.Unmarshal(respBody, &jobResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse booking response: %v", err)), nil
		}
		if jobResp.ID == "" {
			return mcp.NewToolResultError("booking job creation failed: " + string(respBody)), nil
		}

		// Poll until the run finishes.
		resultBody, err := pollJobCompletion(ctx, client, apiURL, apiKey, "/api/v1/bookings/"+jobResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling booking job failed (job %s still running): %v", jobResp.ID, err)), nil
		}

		var statusResp bookingStatusResponse
		if err := json.Unmarshal(resultBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse booking status: %v", err)), nil
		}

		return mcp.NewToolResultText(formatBookingStatus(&statusResp)), nil
	}
}

func handleBookingStatus(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil {
			return mcp.NewToolResultError("job_id is required"), nil
		}

		respBody, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/bookings/"+jobID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status request failed: %v", err)), nil
		}

		var statusResp bookingStatusResponse
		if err := json.Unmarshal(respBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse booking status: %v", err)), nil
		}
		if statusResp.ID == "" {
			return mcp.NewToolResultError("booking job not found"), nil
		}

		return mcp.NewToolResultText(formatBookingStatus(&statusResp)), nil
	}
}

func handlePoolStatus(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		respBody, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/pool")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("pool request failed: %v", err)), nil
		}

		var stats poolStatsResponse
		if err := json.Unmarshal(respBody, &stats); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse pool stats: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"Proxy pool: %d validated proxies available, %d leased to in-flight attempts",
			stats.Available, stats.Leased,
		)), nil
	}
}

// formatBookingStatus renders a booking job status for the tool result.
func formatBookingStatus(s *bookingStatusResponse) string {
	switch s.Status {
	case "matched":
		ref := ""
		if s.Result != nil && s.Result.Artifact != nil {
			ref = s.Result.Artifact.Ref
		}
		attempts := 0
		center := ""
		if s.Result != nil {
			attempts = s.Result.Attempts
			center = s.Result.Center
		}
		return fmt.Sprintf("Booking %s MATCHED: center %q assigned after %d attempt(s).\nConfirmation: %s",
			s.ID, center, attempts, ref)
	case "abandoned":
		attempts := 0
		if s.Result != nil {
			attempts = s.Result.Attempts
		}
		msg := ""
		if s.Error != nil {
			msg = s.Error.Message
		}
		return fmt.Sprintf("Booking %s ABANDONED after %d attempt(s): %s", s.ID, attempts, msg)
	default:
		return fmt.Sprintf("Booking %s: %s", s.ID, s.Status)
	}
}
