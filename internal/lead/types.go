// Package lead defines the candidate lead model, its processing lifecycle and the
// collaborator contracts shared by the crawl pipeline.
package lead

import (
	"time"
)

// Status is the processing state of a candidate lead.
type Status string

// Processing status values persisted in law_leads_final.processing_status.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusFailed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Candidate is a row of the denormalized staging table. Only ApolloID is required; the
// descriptive fields are free text copied from the source spreadsheet.
type Candidate struct {
	ApolloID              string     `json:"apollo_id"`
	Name                  string     `json:"name,omitempty"`
	Website               string     `json:"website,omitempty"`
	City                  string     `json:"city,omitempty"`
	State                 string     `json:"state,omitempty"`
	Country               string     `json:"country,omitempty"`
	FullAddress           string     `json:"full_address,omitempty"`
	PhoneNumber           string     `json:"phone_number,omitempty"`
	GBPLink               string     `json:"gbp_link,omitempty"`
	GBPReviewCount        string     `json:"gbp_review_count,omitempty"`
	GBPCategory           string     `json:"gbp_category,omitempty"`
	County                string     `json:"county,omitempty"`
	EstimatedNumEmployees string     `json:"estimated_num_employees,omitempty"`
	Emails                string     `json:"emails,omitempty"`
	Status                Status     `json:"processing_status"`
	FoundAt               time.Time  `json:"found_at"`
	ClaimedAt             *time.Time `json:"claimed_at,omitempty"`
	ClaimedBy             string     `json:"claimed_by,omitempty"`
	LastError             string     `json:"last_error,omitempty"`
	Attempts              int        `json:"attempts"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Firm is the normalized identity of a law firm keyed by its website.
type Firm struct {
	ID         int64     `json:"id"`
	WebsiteURL string    `json:"website_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExtractedEmail is one address discovered for a firm.
type ExtractedEmail struct {
	ID         int64     `json:"id"`
	FirmID     int64     `json:"firm_id"`
	Email      string    `json:"email"`
	SourcePage string    `json:"source_page,omitempty"`
	FoundAt    time.Time `json:"found_at"`
}

// Hit is an email found on a page during a crawl.
type Hit struct {
	Email      string
	SourcePage string
}

// Page is the rendered result of a single navigation.
type Page struct {
	URL        string
	StatusCode int
	HTML       string
	Duration   time.Duration
	Rendered   bool
}

// StatusCounts maps each status to the number of candidates holding it.
type StatusCounts map[Status]int64
