package model

// Label is read-only reference data that can be attached to an issue.
type Label struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// LabelWithCount extends Label with the number of issues using it.
type LabelWithCount struct {
	Label
	IssueCount int `json:"issue_count"`
}

// User is read-only reference data; issues may be assigned to one.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
