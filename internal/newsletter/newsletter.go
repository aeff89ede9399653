// Package newsletter handles the footer signup form.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ciphera-net/website/internal/contact"
	"github.com/ciphera-net/website/internal/submission"
	"github.com/ciphera-net/website/internal/telemetry"
)

var (
	// ErrInvalidEmail wraps the validation message shown next to the input.
	ErrInvalidEmail = errors.New("newsletter: invalid email")
	// ErrUnavailable is returned when the signup could not be delivered.
	ErrUnavailable = errors.New("newsletter: signup unavailable")
)

// Publisher delivers a prepared envelope.
type Publisher interface {
	Publish(ctx context.Context, env submission.Envelope) error
}

// ValidationError carries the user facing message for a rejected address.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidEmail }

// Service subscribes visitors.
type Service struct {
	publisher Publisher
	tracker   telemetry.Tracker
}

// NewService builds a service. A nil tracker disables events.
func NewService(publisher Publisher, tracker telemetry.Tracker) (*Service, error) {
	if publisher == nil {
		return nil, errors.New("newsletter: publisher is required")
	}
	if tracker == nil {
		tracker = telemetry.Noop{}
	}
	return &Service{publisher: publisher, tracker: tracker}, nil
}

// Subscribe validates email and hands a newsletter envelope to the publisher.
func (s *Service) Subscribe(ctx context.Context, email string, client contact.ClientInfo) error {
	s.tracker.Track(telemetry.EventNewsletterAttempt)

	email = strings.TrimSpace(email)
	if msg := contact.ValidateEmail(email); msg != "" {
		s.tracker.Track(telemetry.EventNewsletterError)
		return &ValidationError{Message: msg}
	}

	env := submission.Envelope{
		Kind:  submission.KindNewsletter,
		Email: strings.ToLower(email),
		Client: submission.Client{
			RemoteIP:  client.RemoteIP,
			UserAgent: client.UserAgent,
			Locale:    client.Locale,
		},
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		s.tracker.Track(telemetry.EventNewsletterError)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.tracker.Track(telemetry.EventNewsletterSuccess)
	return nil
}
