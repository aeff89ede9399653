package newsletter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ciphera-net/website/internal/contact"
	"github.com/ciphera-net/website/internal/submission"
	"github.com/ciphera-net/website/internal/telemetry"
)

type publisherFunc func(ctx context.Context, env submission.Envelope) error

func (f publisherFunc) Publish(ctx context.Context, env submission.Envelope) error { return f(ctx, env) }

func TestSubscribePublishesNormalisedEmail(t *testing.T) {
	var (
		got    submission.Envelope
		events []string
	)
	svc, err := NewService(publisherFunc(func(_ context.Context, env submission.Envelope) error {
		got = env
		return nil
	}), telemetry.Func(func(name string) { events = append(events, name) }))
	require.NoError(t, err)

	err = svc.Subscribe(context.Background(), "  Reader@Example.COM ", contact.ClientInfo{Locale: "de"})
	require.NoError(t, err)
	require.Equal(t, submission.KindNewsletter, got.Kind)
	require.Equal(t, "reader@example.com", got.Email)
	require.Equal(t, "de", got.Client.Locale)
	require.Equal(t, []string{telemetry.EventNewsletterAttempt, telemetry.EventNewsletterSuccess}, events)
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	called := false
	svc, err := NewService(publisherFunc(func(context.Context, submission.Envelope) error {
		called = true
		return nil
	}), nil)
	require.NoError(t, err)

	err = svc.Subscribe(context.Background(), "not-an-email", contact.ClientInfo{})
	require.ErrorIs(t, err, ErrInvalidEmail)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, contact.MsgEmailInvalid, verr.Message)
	require.False(t, called)
}

func TestSubscribeWrapsPublishFailure(t *testing.T) {
	boom := errors.New("topic missing")
	var events []string
	svc, err := NewService(publisherFunc(func(context.Context, submission.Envelope) error {
		return boom
	}), telemetry.Func(func(name string) { events = append(events, name) }))
	require.NoError(t, err)

	err = svc.Subscribe(context.Background(), "a@b.co", contact.ClientInfo{})
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, boom)
	require.Equal(t, telemetry.EventNewsletterError, events[len(events)-1])
}

func TestNewServiceRequiresPublisher(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)
}
