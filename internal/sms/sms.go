// Package sms delivers text messages to guardians and visitors.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gatepass/internal/middleware"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrNoRecipient is returned when Send is called without a phone number.
var ErrNoRecipient = errors.New("sms: empty recipient")

// Sender sends one text message.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender sends messages through the Twilio REST API.
type TwilioSender struct {
	api     messageCreator
	from    string
	timeout time.Duration
}

// NewTwilioSender builds a sender for the given account. Each send is bounded by timeout.
func NewTwilioSender(accountSID, authToken, from string, timeout time.Duration) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &TwilioSender{api: client.Api, from: from, timeout: timeout}
}

// Send delivers body to the phone number to. The Twilio client is blocking, so
// the call runs in its own goroutine and Send returns early when ctx is done.
func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	done := make(chan error, 1)
	go func() {
		resp, err := s.api.CreateMessage(params)
		if err == nil && resp != nil && resp.Sid != nil {
			middleware.Logger.DebugContext(ctx, "sms accepted", slog.String("sid", *resp.Sid))
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send sms to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send sms to %s: %w", to, ctx.Err())
	}
}

// LogSender writes messages to the log instead of sending them. It is used when
// no Twilio credentials are configured.
type LogSender struct{}

// Send logs the message and always succeeds for a non-empty recipient.
func (LogSender) Send(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	middleware.Logger.InfoContext(ctx, "sms not sent (no provider configured)",
		slog.String("to", to),
		slog.Int("body_length", len(body)),
	)
	return nil
}
