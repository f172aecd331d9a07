package models

import "time"

// RequestStatus defines lifecycle states for gate-pass requests.
type RequestStatus string

const (
	// RequestStatusPending indicates the request is awaiting review.
	RequestStatusPending RequestStatus = "Pending"
	// RequestStatusApproved indicates the request was accepted.
	RequestStatusApproved RequestStatus = "Approved"
	// RequestStatusRejected indicates the request was denied.
	RequestStatusRejected RequestStatus = "Rejected"
)

// Known request types.
const (
	RequestTypeIn       = "in"
	RequestTypeOut      = "out"
	RequestTypeOOHostel = "OOHostel"
)

// RequestCategory groups request types that share a resolution workflow.
type RequestCategory string

const (
	// CategoryGate covers campus exit/entry requests.
	CategoryGate RequestCategory = "gate"
	// CategoryOutOfHostel covers out-of-hostel requests.
	CategoryOutOfHostel RequestCategory = "out-of-hostel"
	// CategoryNone is any type outside the resolvable workflows.
	CategoryNone RequestCategory = ""
)

// GateRequestTypes lists the request types resolved by the gate workflow.
var GateRequestTypes = []string{RequestTypeIn, RequestTypeOut}

// CategoryOf returns the workflow category of a request type.
func CategoryOf(requestType string) RequestCategory {
	switch requestType {
	case RequestTypeIn, RequestTypeOut:
		return CategoryGate
	case RequestTypeOOHostel:
		return CategoryOutOfHostel
	default:
		return CategoryNone
	}
}

// Types returns the request types belonging to the category.
func (c RequestCategory) Types() []string {
	switch c {
	case CategoryGate:
		return GateRequestTypes
	case CategoryOutOfHostel:
		return []string{RequestTypeOOHostel}
	default:
		return nil
	}
}

// Request is a resident's gate-pass or out-of-hostel request.
type Request struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Username    string        `gorm:"size:255;not null;index:idx_requests_username_status" json:"username"`
	Type        string        `gorm:"column:type;size:20;not null" json:"type"`
	Image       *string       `gorm:"type:text" json:"image"`
	Purpose     string        `gorm:"type:text;not null" json:"purpose"`
	Role        string        `gorm:"size:20;default:'Student'" json:"role"`
	Status      RequestStatus `gorm:"size:20;default:'Pending';index:idx_requests_username_status" json:"status"`
	RequestedAt time.Time     `json:"requested_at"`
}

// TableName specifies the table name for GORM
func (Request) TableName() string {
	return "requests"
}

// Category returns the workflow category of the request.
func (r Request) Category() RequestCategory {
	return CategoryOf(r.Type)
}
