package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gatepass/internal/cache"
	"gatepass/internal/middleware"
	"gatepass/internal/models"
	"gatepass/internal/notifications"
	"gatepass/internal/repository"
	"gatepass/internal/sms"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Alert sweep outcome messages.
const (
	AlertMessageNoRecipients = "No users to notify."
	AlertMessageSent         = "Alert sent and offences updated successfully!"
)

// AlertPolicy selects who the sweep targets and what they are sent.
type AlertPolicy struct {
	StudentRole string
	VisitorRole string
	Message     string
	// MaxConcurrency caps in-flight SMS sends. Zero means unlimited.
	MaxConcurrency int
}

// DispatchFailure records one SMS that could not be sent.
type DispatchFailure struct {
	Phone string `json:"phone"`
	Error string `json:"error"`
}

// AlertReport summarizes a sweep.
type AlertReport struct {
	Message    string            `json:"message"`
	Penalized  int64             `json:"penalized"`
	Recipients int               `json:"recipients"`
	Sent       int               `json:"sent"`
	Failed     int               `json:"failed"`
	Failures   []DispatchFailure `json:"failures"`
}

// AlertService penalizes students who are off campus and visitors who are
// still on campus, then notifies them by SMS.
type AlertService struct {
	db       *gorm.DB
	users    repository.UserRepository
	sender   sms.Sender
	notifier *notifications.Notifier
	policy   AlertPolicy
}

// NewAlertService returns a new AlertService. notifier may be nil.
func NewAlertService(
	db *gorm.DB,
	users repository.UserRepository,
	sender sms.Sender,
	notifier *notifications.Notifier,
	policy AlertPolicy,
) *AlertService {
	return &AlertService{db: db, users: users, sender: sender, notifier: notifier, policy: policy}
}

// Sweep runs one alert cycle. Offences are committed before any message is
// sent. Send failures are reported, not returned; only datastore errors fail the sweep.
func (s *AlertService) Sweep(ctx context.Context) (*AlertReport, error) {
	var students, visitors []models.User
	var penalized int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		var err error
		if students, err = users.ListByRoleAndStatus(ctx, s.policy.StudentRole, models.UserStatusOut); err != nil {
			return err
		}
		if visitors, err = users.ListByRoleAndStatus(ctx, s.policy.VisitorRole, models.UserStatusIn); err != nil {
			return err
		}

		ids := make([]uint, 0, len(students))
		for _, u := range students {
			ids = append(ids, u.ID)
		}
		penalized, err = users.IncrementOffences(ctx, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("alert sweep: %w", err)
	}

	if len(students) > 0 {
		names := make([]string, 0, len(students))
		for _, u := range students {
			names = append(names, u.Username)
		}
		cache.InvalidateUsers(ctx, names...)
		middleware.OffencesIncremented.Add(float64(penalized))
	}

	recipients := recipientPhones(students, visitors)
	report := &AlertReport{
		Penalized:  penalized,
		Recipients: len(recipients),
		Failures:   []DispatchFailure{},
	}

	if len(recipients) == 0 {
		report.Message = AlertMessageNoRecipients
	} else {
		s.dispatch(ctx, recipients, report)
		if report.Failed == 0 {
			report.Message = AlertMessageSent
		} else {
			report.Message = fmt.Sprintf("Offences updated; %d of %d alerts failed", report.Failed, report.Recipients)
		}
	}

	middleware.Logger.InfoContext(ctx, "alert sweep finished",
		slog.Int64("penalized", report.Penalized),
		slog.Int("recipients", report.Recipients),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
	)

	if err := s.notifier.PublishAlertSwept(ctx, notifications.AlertSwept{
		Penalized:  int(report.Penalized),
		Recipients: report.Recipients,
		Sent:       report.Sent,
		Failed:     report.Failed,
	}); err != nil {
		middleware.Logger.WarnContext(ctx, "publish alert.swept failed", slog.String("error", err.Error()))
	}

	return report, nil
}

// dispatch sends one message per phone concurrently and waits for all of them.
func (s *AlertService) dispatch(ctx context.Context, phones []string, report *AlertReport) {
	errs := make([]error, len(phones))

	var g errgroup.Group
	if s.policy.MaxConcurrency > 0 {
		g.SetLimit(s.policy.MaxConcurrency)
	}
	for i, phone := range phones {
		g.Go(func() error {
			errs[i] = s.sender.Send(ctx, phone, s.policy.Message)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err == nil {
			report.Sent++
			middleware.SMSDispatches.WithLabelValues("sent").Inc()
			continue
		}
		report.Failed++
		report.Failures = append(report.Failures, DispatchFailure{Phone: phones[i], Error: err.Error()})
		middleware.SMSDispatches.WithLabelValues("failed").Inc()
		middleware.Logger.WarnContext(ctx, "alert sms failed",
			slog.String("phone", phones[i]),
			slog.String("error", err.Error()),
		)
	}
}

// recipientPhones concatenates the phones of both populations, skipping blanks.
// A phone shared by several selected users is messaged once per user.
func recipientPhones(groups ...[]models.User) []string {
	var phones []string
	for _, group := range groups {
		for _, u := range group {
			if u.HasPhone() {
				phones = append(phones, strings.TrimSpace(*u.Phone))
			}
		}
	}
	return phones
}
