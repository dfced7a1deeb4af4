package models

import "time"

// JobListing is a published job posting, keyed by its normalised URL
// (spec §3, §4.9).
type JobListing struct {
	ID          string `db:"id" json:"id"`
	URL         string `db:"url" json:"url"`
	Title       string `db:"title" json:"title"`
	Company     string `db:"company" json:"company"`
	Location    string `db:"location" json:"location,omitempty"`
	Description string `db:"description" json:"description,omitempty"`
	PostedDate  string `db:"posted_date" json:"posted_date,omitempty"`
	Salary      string `db:"salary" json:"salary,omitempty"`

	Extraction JSONMap `db:"extraction" json:"extraction,omitempty"`

	QueueItemID string `db:"queue_item_id" json:"queue_item_id"`
	TrackingID  string `db:"tracking_id" json:"tracking_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MatchStatus is the operator-facing status of a scored match.
type MatchStatus string

const (
	MatchStatusNew       MatchStatus = "new"
	MatchStatusReviewed  MatchStatus = "reviewed"
	MatchStatusApplied   MatchStatus = "applied"
	MatchStatusDismissed MatchStatus = "dismissed"
)

// JobMatch is the scored outcome of matching a JobListing against the
// user profile (spec §3, §4.5 stage 5, §4.9).
type JobMatch struct {
	ID           string `db:"id" json:"id"`
	JobListingID string `db:"job_listing_id" json:"job_listing_id"`
	URL          string `db:"url" json:"url"`

	Score float64 `db:"score" json:"score"`

	MatchedSkills []string `db:"matched_skills" json:"matched_skills,omitempty"`
	MissingSkills []string `db:"missing_skills" json:"missing_skills,omitempty"`

	ExperienceMatch             string `db:"experience_match" json:"experience_match,omitempty"`
	KeyStrengths                string `db:"key_strengths" json:"key_strengths,omitempty"`
	PotentialConcerns           string `db:"potential_concerns" json:"potential_concerns,omitempty"`
	CustomizationRecommendation string `db:"customization_recommendations" json:"customization_recommendations,omitempty"`

	Status      MatchStatus `db:"status" json:"status"`
	DocumentURL string      `db:"document_url" json:"document_url,omitempty"`
	Notes       string      `db:"notes" json:"notes,omitempty"`

	QueueItemID string `db:"queue_item_id" json:"queue_item_id"`
	TrackingID  string `db:"tracking_id" json:"tracking_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
