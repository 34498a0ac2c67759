package model

// AssigneeCount is one row of the top-assignees report.
type AssigneeCount struct {
	UserID     int    `json:"user_id"`
	Name       string `json:"name"`
	IssueCount int    `json:"issue_count"`
}

// ResolutionLatency is the average time from creation to close.
type ResolutionLatency struct {
	AverageHours float64 `json:"average_hours"`
}
