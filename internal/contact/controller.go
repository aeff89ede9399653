package contact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ciphera-net/website/internal/captcha"
	"github.com/ciphera-net/website/internal/platform/schedule"
	"github.com/ciphera-net/website/internal/telemetry"
)

const (
	DefaultSuccessDisplay = 8 * time.Second
	DefaultErrorDisplay   = 5 * time.Second
	DefaultSubmitTimeout  = 15 * time.Second
)

var (
	ErrClosed               = errors.New("contact: form closed")
	ErrNotIdle              = errors.New("contact: submission already in progress")
	ErrInvalidFields        = errors.New("contact: invalid fields")
	ErrVerificationRequired = errors.New("contact: bot verification required")
	ErrConsentRequired      = errors.New("contact: privacy consent required")
	ErrSubmitFailed         = errors.New("contact: submission failed")
	ErrMessageTooLong       = errors.New("contact: message exceeds maximum length")
	ErrAttachmentTooLarge   = errors.New("contact: attachment too large")
	ErrAttachmentType       = errors.New("contact: attachment type not allowed")
	ErrUnknownField         = errors.New("contact: unknown field")
	ErrUnknownSubject       = errors.New("contact: unknown subject")
)

// VerificationReporter receives the bot-check widget result.
type VerificationReporter interface {
	ReportVerification(id, solution, token string)
}

// Snapshot is a point-in-time copy of a form for rendering.
type Snapshot struct {
	Status          Status
	Form            Form
	Errors          FieldErrors
	Banner          string
	AttachmentError string
}

// SubmitEnabled reports whether the submit control is active. It stays
// disabled while a submission is running and while its outcome is shown.
func (s Snapshot) SubmitEnabled() bool { return s.Status == StatusIdle }

// MessageLength is the message length in characters.
func (s Snapshot) MessageLength() int { return utf8.RuneCountInString(s.Form.Message) }

// Controller owns one visitor's contact form. Methods are safe for
// concurrent use.
type Controller struct {
	submitter      Submitter
	tracker        telemetry.Tracker
	scheduler      schedule.Scheduler
	logger         *zap.Logger
	successDisplay time.Duration
	errorDisplay   time.Duration
	submitTimeout  time.Duration

	mu            sync.Mutex
	form          Form
	errors        FieldErrors
	banner        string
	attachmentErr string
	status        Status
	epoch         uint64
	reset         schedule.Timer
	cancel        context.CancelFunc
	closed        bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithTracker sets the telemetry tracker.
func WithTracker(t telemetry.Tracker) Option {
	return func(c *Controller) {
		if t != nil {
			c.tracker = t
		}
	}
}

// WithScheduler sets the scheduler for delayed resets.
func WithScheduler(s schedule.Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDisplayDurations sets how long success and error outcomes stay up.
func WithDisplayDurations(success, failure time.Duration) Option {
	return func(c *Controller) {
		if success > 0 {
			c.successDisplay = success
		}
		if failure > 0 {
			c.errorDisplay = failure
		}
	}
}

// WithSubmitTimeout bounds each submission attempt.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.submitTimeout = d
		}
	}
}

// NewController returns an idle controller with an empty form.
func NewController(submitter Submitter, opts ...Option) *Controller {
	c := &Controller{
		submitter:      submitter,
		tracker:        telemetry.Noop{},
		scheduler:      schedule.Real(),
		logger:         zap.NewNop(),
		successDisplay: DefaultSuccessDisplay,
		errorDisplay:   DefaultErrorDisplay,
		submitTimeout:  DefaultSubmitTimeout,
		form:           NewForm(),
		errors:         FieldErrors{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Status:          c.status,
		Form:            c.form,
		Errors:          c.errors.clone(),
		Banner:          c.banner,
		AttachmentError: c.attachmentErr,
	}
}

// Status returns the lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetField stores typed input and clears that field's error. A message
// longer than MaxMessageLength is rejected and the stored value kept.
func (c *Controller) SetField(field Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := checkField(field, value); err != nil {
		return err
	}
	c.setFieldLocked(field, value)
	return nil
}

func checkField(field Field, value string) error {
	switch field {
	case FieldName, FieldEmail:
	case FieldMessage:
		if utf8.RuneCountInString(value) > MaxMessageLength {
			return ErrMessageTooLong
		}
	case FieldSubject:
		if _, ok := ParseSubject(value); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSubject, value)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// setFieldLocked stores a value already accepted by checkField.
func (c *Controller) setFieldLocked(field Field, value string) {
	switch field {
	case FieldName:
		c.form.Name = value
	case FieldEmail:
		c.form.Email = value
	case FieldMessage:
		c.form.Message = value
	case FieldSubject:
		c.form.Subject, _ = ParseSubject(value)
	}
	delete(c.errors, field)
}

// Blur validates a single field after it loses focus and returns its
// error message, "" when valid.
func (c *Controller) Blur(field Field) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ""
	}
	var value string
	switch field {
	case FieldName:
		value = c.form.Name
	case FieldEmail:
		value = c.form.Email
	case FieldMessage:
		value = c.form.Message
	default:
		return ""
	}
	msg := ValidateField(field, value)
	if msg != "" {
		c.errors[field] = msg
		return msg
	}
	delete(c.errors, field)
	c.tracker.Track(telemetry.FieldCompleted(string(field)))
	return ""
}

// SelectAttachment attaches a file. Oversized or unsupported files are
// rejected with a visible error and leave the current attachment alone.
func (c *Controller) SelectAttachment(a Attachment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.selectAttachmentLocked(a)
}

func (c *Controller) selectAttachmentLocked(a Attachment) error {
	if a.Size == 0 {
		a.Size = int64(len(a.Content))
	}
	if a.Size > MaxAttachmentBytes {
		c.attachmentErr = MsgAttachmentTooLarge
		return ErrAttachmentTooLarge
	}
	if !AllowedAttachment(a.Filename, a.ContentType) {
		c.attachmentErr = MsgAttachmentType
		return ErrAttachmentType
	}
	c.form.Attachment = &a
	c.attachmentErr = ""
	c.tracker.Track(telemetry.EventAttachmentAdded)
	return nil
}

// RemoveAttachment drops the current attachment.
func (c *Controller) RemoveAttachment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachmentErr = ""
	if c.form.Attachment == nil {
		return
	}
	c.form.Attachment = nil
	c.tracker.Track(telemetry.EventAttachmentRemoved)
}

// ReportVerification implements VerificationReporter. Reporting empty
// values clears an expired verification.
func (c *Controller) ReportVerification(id, solution, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.reportVerificationLocked(captcha.Verification{ID: id, Solution: solution, Token: token})
}

func (c *Controller) reportVerificationLocked(v captcha.Verification) {
	previous := c.form.BotCheck
	c.form.BotCheck = v
	if v.Complete() && v != previous {
		c.tracker.Track(telemetry.EventCaptchaVerified)
	}
}

// SetConsent records the privacy policy checkbox.
func (c *Controller) SetConsent(accepted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.setConsentLocked(accepted)
}

func (c *Controller) setConsentLocked(accepted bool) {
	if c.form.GDPRConsent == accepted {
		return
	}
	c.form.GDPRConsent = accepted
	if accepted {
		c.tracker.Track(telemetry.EventConsentAccepted)
	} else {
		c.tracker.Track(telemetry.EventConsentRevoked)
	}
}

// Input is a complete form post. Nil and absent parts leave the stored
// values alone.
type Input struct {
	Fields       map[Field]string
	Consent      *bool
	Verification *captcha.Verification
	Attachment   *Attachment
}

// Submit gates the form and, when it passes, delivers it through the
// submitter. It blocks until the outcome is known, the submit timeout
// passes or the controller is closed. Gating failures leave the status
// idle and return ErrInvalidFields, ErrVerificationRequired or
// ErrConsentRequired; a delivery failure returns ErrSubmitFailed.
func (c *Controller) Submit(ctx context.Context) (Snapshot, error) {
	return c.SubmitInput(ctx, Input{})
}

// SubmitInput applies in and submits in one step. Outside the idle state
// it returns ErrNotIdle without touching the form. A message over the
// limit rejects the whole input with ErrMessageTooLong; a rejected
// attachment returns its error after the other parts were stored.
func (c *Controller) SubmitInput(ctx context.Context, in Input) (Snapshot, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if c.status != StatusIdle {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrNotIdle
	}
	if err := c.applyLocked(in); err != nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, err
	}

	c.banner = ""
	c.errors = ValidateAll(c.form)
	if gateErr := c.gateLocked(); gateErr != nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, gateErr
	}

	c.status, _ = Transition(c.status, EventSubmit)
	c.epoch++
	epoch := c.epoch
	sub := c.form.submission(ClientInfoFrom(ctx))
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.submitTimeout)
	c.cancel = cancel
	c.mu.Unlock()

	err := c.deliver(runCtx, sub)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.epoch != epoch {
		return Snapshot{}, ErrClosed
	}
	c.cancel = nil
	if err != nil {
		c.status, _ = Transition(c.status, EventFailed)
		c.tracker.Track(telemetry.EventContactSubmitError)
		c.scheduleResetLocked(c.errorDisplay, epoch)
		if errors.Is(err, captcha.ErrRejected) || errors.Is(err, captcha.ErrIncomplete) {
			c.banner = MsgCaptchaRequired
			c.form.BotCheck = captcha.Verification{}
			c.logger.Info("contact bot-check rejected", zap.String("subject", string(sub.Subject)), zap.Error(err))
			return c.snapshotLocked(), fmt.Errorf("%w: %w", ErrVerificationRequired, err)
		}
		c.banner = MsgSubmitFailed
		c.logger.Warn("contact submission failed", zap.String("subject", string(sub.Subject)), zap.Error(err))
		return c.snapshotLocked(), fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	c.status, _ = Transition(c.status, EventSucceeded)
	c.form = NewForm()
	c.errors = FieldErrors{}
	c.attachmentErr = ""
	c.tracker.Track(telemetry.EventContactSubmitSuccess)
	c.logger.Info("contact submission delivered", zap.String("subject", string(sub.Subject)))
	c.scheduleResetLocked(c.successDisplay, epoch)
	return c.snapshotLocked(), nil
}

func (c *Controller) applyLocked(in Input) error {
	for field, value := range in.Fields {
		if err := checkField(field, value); err != nil {
			if errors.Is(err, ErrMessageTooLong) {
				c.errors[FieldMessage] = MsgMessageTooLong
				c.banner = MsgFixErrors
			}
			return err
		}
	}
	for field, value := range in.Fields {
		c.setFieldLocked(field, value)
	}
	if in.Consent != nil {
		c.setConsentLocked(*in.Consent)
	}
	if in.Verification != nil {
		c.reportVerificationLocked(*in.Verification)
	}
	if in.Attachment != nil {
		return c.selectAttachmentLocked(*in.Attachment)
	}
	return nil
}

func (c *Controller) gateLocked() error {
	switch {
	case c.errors.Any():
		c.banner = MsgFixErrors
		return ErrInvalidFields
	case !c.form.BotCheck.Complete():
		c.banner = MsgCaptchaRequired
		return ErrVerificationRequired
	case !c.form.GDPRConsent:
		c.banner = MsgConsentRequired
		return ErrConsentRequired
	}
	return nil
}

// deliver runs the submitter but stops waiting once ctx ends, so a
// submitter that ignores cancellation still times out.
func (c *Controller) deliver(ctx context.Context, sub Submission) error {
	if c.submitter == nil {
		return errors.New("contact: no submitter configured")
	}
	done := make(chan error, 1)
	go func() {
		done <- c.submitter.Submit(ctx, sub)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) scheduleResetLocked(d time.Duration, epoch uint64) {
	if c.reset != nil {
		c.reset.Stop()
	}
	c.reset = c.scheduler.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || c.epoch != epoch {
			return
		}
		c.reset = nil
		next, ok := Transition(c.status, EventDisplayElapsed)
		if !ok {
			return
		}
		c.status = next
	})
}

// Close releases the form when the visitor leaves. A pending reset is
// cancelled and an in-flight submission's outcome is discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.epoch++
	if c.reset != nil {
		c.reset.Stop()
		c.reset = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
