package service

import (
	"strings"

	"gatepass/internal/models"
)

// statusTransitions maps an approved request's category and the resident's
// current status to the resident's next status.
var statusTransitions = map[models.RequestCategory]map[string]string{
	models.CategoryGate: {
		models.UserStatusIn:   models.UserStatusOut,
		models.UserStatusOut:  models.UserStatusIn,
		models.UserStatusHome: models.UserStatusIn,
	},
	models.CategoryOutOfHostel: {
		models.UserStatusIn:   models.UserStatusHome,
		models.UserStatusOut:  models.UserStatusHome,
		models.UserStatusHome: models.UserStatusHome,
	},
}

// NextStatus returns the status a resident moves to when a request of category
// is approved. Current is compared case-insensitively and the result is lowercase.
func NextStatus(current string, category models.RequestCategory) (string, error) {
	next, ok := statusTransitions[category][strings.ToLower(strings.TrimSpace(current))]
	if !ok {
		return "", models.NewInvalidTransitionError(current, category)
	}
	return next, nil
}

// Resolution actions accepted by the resolve endpoints.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// statusForAction validates action and returns the terminal request status it produces.
func statusForAction(action string) (models.RequestStatus, error) {
	switch action {
	case ActionApprove:
		return models.RequestStatusApproved, nil
	case ActionReject:
		return models.RequestStatusRejected, nil
	default:
		return "", models.NewValidationError("Invalid action")
	}
}
