package models

import "time"

// Candidate is one applicant record to submit. It is loaded by the caller
// (CSV or API) and read-only to the booking engine.
type Candidate struct {
	FirstName          string `json:"first_name" csv:"first_name"`
	LastName           string `json:"last_name" csv:"last_name"`
	DateOfBirth        string `json:"date_of_birth" csv:"date_of_birth"`
	Gender             string `json:"gender" csv:"gender"`
	MaritalStatus      string `json:"marital_status" csv:"marital_status"`
	Nationality        string `json:"nationality" csv:"nationality"`
	PassportNumber     string `json:"passport_number" csv:"passport_number"`
	PassportIssueDate  string `json:"passport_issue_date" csv:"passport_issue_date"`
	PassportIssuePlace string `json:"passport_issue_place" csv:"passport_issue_place"`
	PassportExpiryDate string `json:"passport_expiry_date" csv:"passport_expiry_date"`
	VisaType           string `json:"visa_type" csv:"visa_type"`
	Email              string `json:"email" csv:"email"`
	Phone              string `json:"phone" csv:"phone"`
	NationalID         string `json:"national_id" csv:"national_id"`
	Position           string `json:"position" csv:"position"`
	Country            string `json:"country" csv:"country"`
	City               string `json:"city" csv:"city"`
	TravelingTo        string `json:"traveling_to" csv:"traveling_to"`
}

// Artifact is the completion proof captured after a positive match:
// the confirmation page and a reference (appointment/slip identifier or URL).
type Artifact struct {
	Ref        string    `json:"ref"`
	HTML       string    `json:"html,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// OutcomeKind classifies a single attempt's result.
type OutcomeKind int

const (
	// OutcomeMatched means the server assigned the target center.
	OutcomeMatched OutcomeKind = iota
	// OutcomeNoMatch means an assignment was captured but for another center.
	OutcomeNoMatch
	// OutcomeInconclusive means no usable assignment was captured
	// (empty pool, transport failure, malformed records).
	OutcomeInconclusive
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMatched:
		return "matched"
	case OutcomeNoMatch:
		return "no_match"
	default:
		return "inconclusive"
	}
}

// AttemptOutcome is produced once per attempt and consumed immediately by
// the retry loop to decide the next action. It is never persisted.
type AttemptOutcome struct {
	Kind       OutcomeKind
	Assignment *Assignment
	Artifact   *Artifact
	Reason     string
}

// BookingResult is the only value that crosses the Run() boundary:
// either a matched artifact or an abandonment with the attempt count.
type BookingResult struct {
	Matched  bool      `json:"matched"`
	Attempts int       `json:"attempts"`
	Center   string    `json:"center,omitempty"`
	Artifact *Artifact `json:"artifact,omitempty"`
}
