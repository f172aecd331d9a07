package models

// RoleCount is one row of the users-by-role breakdown.
type RoleCount struct {
	Role  string `json:"role"`
	Count int64  `json:"count"`
}

// StatusCount is one row of the users-by-status breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// CampusPresence counts residents by where they currently are.
type CampusPresence struct {
	InCount   int64 `gorm:"column:in_count" json:"in_count"`
	OutCount  int64 `gorm:"column:out_count" json:"out_count"`
	HomeCount int64 `gorm:"column:home_count" json:"home_count"`
}

// UserStats is the payload of the user statistics endpoint.
type UserStats struct {
	ByRole   []RoleCount    `json:"byRole"`
	ByStatus []StatusCount  `json:"byStatus"`
	InCampus CampusPresence `json:"inCampus"`
}

// DailyRequestCount aggregates one calendar day of requests.
type DailyRequestCount struct {
	Date          string `gorm:"column:date" json:"date"`
	TotalRequests int64  `gorm:"column:total_requests" json:"total_requests"`
	Approved      int64  `gorm:"column:approved" json:"approved"`
	Rejected      int64  `gorm:"column:rejected" json:"rejected"`
	Pending       int64  `gorm:"column:pending" json:"pending"`
}

// TypeCount is one row of the requests-by-type breakdown.
type TypeCount struct {
	Type  string `gorm:"column:type" json:"type"`
	Count int64  `json:"count"`
}

// RequestStats is the payload of the request statistics endpoint.
type RequestStats struct {
	Daily  []DailyRequestCount `json:"daily"`
	ByType []TypeCount         `json:"byType"`
}
