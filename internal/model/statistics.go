package model

import (
	"time"
)

// StatisticsResponse summarises specs created inside a date range
type StatisticsResponse struct {
	TotalCreated       int64              `json:"total_created"`
	TotalExtensions    int64              `json:"total_extensions"`
	ByStatus           map[string]int64   `json:"by_status"`
	TopApplicants      []ApplicantRanking `json:"top_applicants"`
	TimeRangeStartDate time.Time          `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time          `json:"time_range_end_date"`
}

// StatusCount is one row of a GROUP BY status query
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// ApplicantRanking ranks applicants by the number of specs they requested
type ApplicantRanking struct {
	Applicant  string `json:"applicant"`
	TotalSpecs int64  `json:"total_specs"`
	Extensions int64  `json:"extensions"`
}
