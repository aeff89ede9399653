package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ciphera-net/website/internal/captcha"
	"github.com/ciphera-net/website/internal/platform/schedule"
	"github.com/ciphera-net/website/internal/telemetry"
)

type recordingTracker struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTracker) Track(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recordingTracker) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

type testHarness struct {
	controller *Controller
	clock      *schedule.Manual
	tracker    *recordingTracker
	calls      *atomic.Int32
}

func newHarness(t *testing.T, submit SubmitterFunc, opts ...Option) testHarness {
	t.Helper()
	h := testHarness{
		clock:   schedule.NewManual(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)),
		tracker: &recordingTracker{},
		calls:   &atomic.Int32{},
	}
	counting := SubmitterFunc(func(ctx context.Context, s Submission) error {
		h.calls.Add(1)
		return submit(ctx, s)
	})
	opts = append([]Option{WithScheduler(h.clock), WithTracker(h.tracker)}, opts...)
	h.controller = NewController(counting, opts...)
	return h
}

func succeed(context.Context, Submission) error { return nil }

func fillValid(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.SetField(FieldName, "Ada Lovelace"))
	require.NoError(t, c.SetField(FieldEmail, "ada@example.com"))
	require.NoError(t, c.SetField(FieldSubject, "security issue"))
	require.NoError(t, c.SetField(FieldMessage, "Hello, I found something odd in Drop."))
	c.ReportVerification("challenge-1", "solution", "token")
	c.SetConsent(true)
}

func TestNewControllerStartsIdleWithDefaults(t *testing.T) {
	c := NewController(SubmitterFunc(succeed))
	snap := c.Snapshot()
	require.Equal(t, StatusIdle, snap.Status)
	require.Equal(t, DefaultSubject, snap.Form.Subject)
	require.False(t, snap.Form.GDPRConsent)
	require.Nil(t, snap.Form.Attachment)
	require.Empty(t, snap.Errors)
	require.True(t, snap.SubmitEnabled())
}

func TestSetFieldClearsOnlyThatFieldError(t *testing.T) {
	h := newHarness(t, succeed)
	c := h.controller

	_, err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrInvalidFields)
	snap := c.Snapshot()
	require.Len(t, snap.Errors, 3)

	require.NoError(t, c.SetField(FieldEmail, "a"))
	snap = c.Snapshot()
	require.NotContains(t, snap.Errors, FieldEmail)
	require.Equal(t, MsgNameTooShort, snap.Errors[FieldName])
	require.Equal(t, MsgMessageTooShort, snap.Errors[FieldMessage])
}

func TestSetFieldRejectsOverlongMessage(t *testing.T) {
	c := NewController(SubmitterFunc(succeed))
	require.NoError(t, c.SetField(FieldMessage, strings.Repeat("ä", MaxMessageLength)))

	err := c.SetField(FieldMessage, strings.Repeat("b", MaxMessageLength+1))
	require.ErrorIs(t, err, ErrMessageTooLong)

	snap := c.Snapshot()
	require.Equal(t, MaxMessageLength, snap.MessageLength())
	require.Equal(t, strings.Repeat("ä", MaxMessageLength), snap.Form.Message)
}

func TestSetFieldRejectsUnknownInput(t *testing.T) {
	c := NewController(SubmitterFunc(succeed))
	require.ErrorIs(t, c.SetField(FieldSubject, "Pricing"), ErrUnknownSubject)
	require.ErrorIs(t, c.SetField(Field("phone"), "123"), ErrUnknownField)
	require.Equal(t, DefaultSubject, c.Snapshot().Form.Subject)
}

func TestBlurValidatesSingleField(t *testing.T) {
	h := newHarness(t, succeed)
	c := h.controller

	require.NoError(t, c.SetField(FieldName, "A"))
	require.Equal(t, MsgNameTooShort, c.Blur(FieldName))
	snap := c.Snapshot()
	require.Equal(t, map[Field]string{FieldName: MsgNameTooShort}, map[Field]string(snap.Errors))

	require.NoError(t, c.SetField(FieldName, "Al"))
	require.Equal(t, "", c.Blur(FieldName))
	require.Empty(t, c.Snapshot().Errors)
	require.Equal(t, 1, h.tracker.count("contact_name_completed"))

	require.Equal(t, "", c.Blur(FieldSubject))
}

func TestSubmitGatingOrder(t *testing.T) {
	h := newHarness(t, succeed)
	c := h.controller

	require.NoError(t, c.SetField(FieldName, "Al"))
	require.NoError(t, c.SetField(FieldEmail, "al@example.com"))
	require.NoError(t, c.SetField(FieldMessage, "short"))
	c.SetConsent(true)

	snap, err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrInvalidFields)
	require.Equal(t, MsgFixErrors, snap.Banner)
	require.Equal(t, MsgMessageTooShort, snap.Errors[FieldMessage])
	require.Equal(t, StatusIdle, snap.Status)

	require.NoError(t, c.SetField(FieldMessage, "A long enough message"))
	snap, err = c.Submit(context.Background())
	require.ErrorIs(t, err, ErrVerificationRequired)
	require.Equal(t, MsgCaptchaRequired, snap.Banner)
	require.Empty(t, snap.Errors)

	c.ReportVerification("id", "", "")
	_, err = c.Submit(context.Background())
	require.ErrorIs(t, err, ErrVerificationRequired)

	c.ReportVerification("id", "answer", "")
	c.SetConsent(false)
	snap, err = c.Submit(context.Background())
	require.ErrorIs(t, err, ErrConsentRequired)
	require.Equal(t, MsgConsentRequired, snap.Banner)
	require.Equal(t, StatusIdle, snap.Status)

	require.Zero(t, h.calls.Load())
}

func TestSubmitSuccessResetsFormAndHoldsSuccessWindow(t *testing.T) {
	var got Submission
	h := newHarness(t, func(_ context.Context, s Submission) error {
		got = s
		return nil
	})
	c := h.controller
	fillValid(t, c)
	require.NoError(t, c.SelectAttachment(Attachment{Filename: "report.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}))

	ctx := WithClientInfo(context.Background(), ClientInfo{RemoteIP: "203.0.113.7", UserAgent: "test"})
	snap, err := c.Submit(ctx)
	require.NoError(t, err)

	require.Equal(t, "Ada Lovelace", got.Name)
	require.Equal(t, SubjectSecurity, got.Subject)
	require.Equal(t, "203.0.113.7", got.Client.RemoteIP)
	require.NotNil(t, got.Attachment)
	require.Equal(t, int64(4), got.Attachment.Size)

	require.Equal(t, StatusSuccess, snap.Status)
	require.Equal(t, NewForm(), snap.Form)
	require.False(t, snap.SubmitEnabled())
	require.Equal(t, 1, h.tracker.count(telemetry.EventContactSubmitSuccess))

	_, err = c.Submit(ctx)
	require.ErrorIs(t, err, ErrNotIdle)

	h.clock.Advance(DefaultSuccessDisplay - time.Millisecond)
	require.Equal(t, StatusSuccess, c.Status())
	h.clock.Advance(time.Millisecond)
	require.Equal(t, StatusIdle, c.Status())
	require.EqualValues(t, 1, h.calls.Load())
}

func TestSubmitFailurePreservesFields(t *testing.T) {
	h := newHarness(t, func(context.Context, Submission) error {
		return errors.New("relay unavailable")
	}, WithDisplayDurations(time.Second, 3*time.Second))
	c := h.controller
	fillValid(t, c)

	snap, err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitFailed)
	require.ErrorContains(t, err, "relay unavailable")
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, MsgSubmitFailed, snap.Banner)
	require.Equal(t, "Ada Lovelace", snap.Form.Name)
	require.True(t, snap.Form.GDPRConsent)
	require.Equal(t, 1, h.tracker.count(telemetry.EventContactSubmitError))

	h.clock.Advance(3 * time.Second)
	snap = c.Snapshot()
	require.Equal(t, StatusIdle, snap.Status)
	require.Equal(t, MsgSubmitFailed, snap.Banner)

	_, err = c.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitFailed)
	require.EqualValues(t, 2, h.calls.Load())
}

func TestSubmitTimeoutMapsToError(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := newHarness(t, func(context.Context, Submission) error {
		<-release
		return nil
	}, WithSubmitTimeout(20*time.Millisecond))
	fillValid(t, h.controller)

	snap, err := h.controller.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, StatusError, snap.Status)
}

func TestSubmitIgnoresCallerCancellation(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, _ Submission) error {
		return ctx.Err()
	})
	fillValid(t, h.controller)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap, err := h.controller.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, snap.Status)
}

func TestDuplicateSubmitWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(context.Context, Submission) error {
		<-release
		return nil
	})
	c := h.controller
	fillValid(t, c)

	result := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		result <- err
	}()
	require.Eventually(t, func() bool { return c.Status() == StatusSubmitting }, time.Second, time.Millisecond)

	snap, err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrNotIdle)
	require.False(t, snap.SubmitEnabled())

	close(release)
	require.NoError(t, <-result)
	require.EqualValues(t, 1, h.calls.Load())
	require.Equal(t, StatusSuccess, c.Status())
}

func TestCloseDiscardsInFlightOutcome(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(context.Context, Submission) error {
		<-release
		return nil
	})
	c := h.controller
	fillValid(t, c)

	result := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		result <- err
	}()
	require.Eventually(t, func() bool { return c.Status() == StatusSubmitting }, time.Second, time.Millisecond)

	c.Close()
	require.ErrorIs(t, <-result, ErrClosed)
	close(release)

	require.Zero(t, h.clock.Pending())
	require.Zero(t, h.tracker.count(telemetry.EventContactSubmitSuccess))
	require.Zero(t, h.tracker.count(telemetry.EventContactSubmitError))
	require.ErrorIs(t, c.SetField(FieldName, "Bob"), ErrClosed)
}

func TestCloseCancelsPendingReset(t *testing.T) {
	h := newHarness(t, succeed)
	fillValid(t, h.controller)
	_, err := h.controller.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, h.clock.Pending())

	h.controller.Close()
	require.Zero(t, h.clock.Pending())
	h.clock.Advance(time.Minute)
	require.Equal(t, StatusSuccess, h.controller.Status())
}

func TestAttachmentSelection(t *testing.T) {
	h := newHarness(t, succeed)
	c := h.controller

	err := c.SelectAttachment(Attachment{Filename: "huge.png", ContentType: "image/png", Size: MaxAttachmentBytes + 1})
	require.ErrorIs(t, err, ErrAttachmentTooLarge)
	snap := c.Snapshot()
	require.Nil(t, snap.Form.Attachment)
	require.Equal(t, MsgAttachmentTooLarge, snap.AttachmentError)

	require.NoError(t, c.SelectAttachment(Attachment{Filename: "notes.txt", ContentType: "text/plain", Size: MaxAttachmentBytes}))
	snap = c.Snapshot()
	require.Equal(t, "notes.txt", snap.Form.Attachment.Filename)
	require.Empty(t, snap.AttachmentError)

	require.ErrorIs(t, c.SelectAttachment(Attachment{Filename: "setup.exe", ContentType: "application/octet-stream", Size: 10}), ErrAttachmentType)
	snap = c.Snapshot()
	require.Equal(t, "notes.txt", snap.Form.Attachment.Filename)
	require.Equal(t, MsgAttachmentType, snap.AttachmentError)

	c.RemoveAttachment()
	snap = c.Snapshot()
	require.Nil(t, snap.Form.Attachment)
	require.Empty(t, snap.AttachmentError)
	require.Equal(t, 1, h.tracker.count(telemetry.EventAttachmentAdded))
	require.Equal(t, 1, h.tracker.count(telemetry.EventAttachmentRemoved))
}

func TestVerificationAndConsentTelemetry(t *testing.T) {
	h := newHarness(t, succeed)
	c := h.controller

	c.ReportVerification("id", "sol", "")
	c.ReportVerification("id", "sol", "")
	c.ReportVerification("id-2", "sol", "")
	require.Equal(t, 2, h.tracker.count(telemetry.EventCaptchaVerified))

	c.SetConsent(true)
	c.SetConsent(true)
	c.SetConsent(false)
	require.Equal(t, 1, h.tracker.count(telemetry.EventConsentAccepted))
	require.Equal(t, 1, h.tracker.count(telemetry.EventConsentRevoked))
}

func TestControllerSatisfiesVerificationReporter(t *testing.T) {
	var reporter VerificationReporter = NewController(SubmitterFunc(succeed))
	reporter.ReportVerification("id", "sol", "tok")
	require.True(t, reporter.(*Controller).Snapshot().Form.BotCheck.Complete())
}

func validInput() Input {
	consent := true
	return Input{
		Fields: map[Field]string{
			FieldName:    "Ada Lovelace",
			FieldEmail:   "ada@example.com",
			FieldSubject: string(SubjectSecurity),
			FieldMessage: "Hello, I found something odd in Drop.",
		},
		Consent:      &consent,
		Verification: &captcha.Verification{ID: "challenge-1", Solution: "solution", Token: "token"},
	}
}

func TestSubmitInputAppliesAndDelivers(t *testing.T) {
	var got Submission
	h := newHarness(t, func(_ context.Context, s Submission) error {
		got = s
		return nil
	})
	snap, err := h.controller.SubmitInput(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, snap.Status)
	require.Equal(t, "Ada Lovelace", got.Name)
	require.Equal(t, SubjectSecurity, got.Subject)
	require.True(t, got.BotCheck.Complete())
}

func TestSubmitInputOutsideIdleLeavesFormUntouched(t *testing.T) {
	h := newHarness(t, succeed)
	c := h.controller
	_, err := c.SubmitInput(context.Background(), validInput())
	require.NoError(t, err)

	snap, err := c.SubmitInput(context.Background(), validInput())
	require.ErrorIs(t, err, ErrNotIdle)
	require.Equal(t, StatusSuccess, snap.Status)
	require.Equal(t, NewForm(), c.Snapshot().Form)

	h.clock.Advance(DefaultSuccessDisplay)
	require.Equal(t, StatusIdle, c.Status())
	require.Equal(t, NewForm(), c.Snapshot().Form)
	require.EqualValues(t, 1, h.calls.Load())
}

func TestSubmitInputRejectsOverlongMessage(t *testing.T) {
	h := newHarness(t, succeed)
	c := h.controller
	require.NoError(t, c.SetField(FieldMessage, "An earlier draft of the message."))

	in := validInput()
	in.Fields[FieldMessage] = strings.Repeat("x", MaxMessageLength+1)
	snap, err := c.SubmitInput(context.Background(), in)
	require.ErrorIs(t, err, ErrMessageTooLong)
	require.Equal(t, StatusIdle, snap.Status)
	require.Equal(t, "An earlier draft of the message.", snap.Form.Message)
	require.Equal(t, MsgMessageTooLong, snap.Errors[FieldMessage])
	require.Empty(t, snap.Form.Name)
	require.Zero(t, h.calls.Load())
}

func TestSubmitBotCheckRejectionAsksForVerification(t *testing.T) {
	h := newHarness(t, func(context.Context, Submission) error {
		return fmt.Errorf("verify bot-check: %w", captcha.ErrRejected)
	})
	c := h.controller
	fillValid(t, c)

	snap, err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrVerificationRequired)
	require.ErrorIs(t, err, captcha.ErrRejected)
	require.NotErrorIs(t, err, ErrSubmitFailed)
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, MsgCaptchaRequired, snap.Banner)
	require.False(t, snap.Form.BotCheck.Complete())
	require.Equal(t, "Ada Lovelace", snap.Form.Name)
	require.Equal(t, 1, h.tracker.count(telemetry.EventContactSubmitError))
}
