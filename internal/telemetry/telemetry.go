// Package telemetry records fire-and-forget analytics events. Tracking
// never blocks and never reports failure to the caller.
package telemetry

import "regexp"

// Tracker records named events.
type Tracker interface {
	Track(name string)
}

// Event names emitted by the server.
const (
	EventContactSubmitSuccess = "contact_form_submit_success"
	EventContactSubmitError   = "contact_form_submit_error"
	EventCaptchaVerified      = "contact_captcha_verified"
	EventConsentAccepted      = "contact_consent_accepted"
	EventConsentRevoked       = "contact_consent_revoked"
	EventAttachmentAdded      = "contact_attachment_added"
	EventAttachmentRemoved    = "contact_attachment_removed"
	EventFAQSearch            = "faq_search"
	EventNewsletterAttempt    = "newsletter_signup_attempt"
	EventNewsletterSuccess    = "newsletter_signup_success"
	EventNewsletterError      = "newsletter_signup_error"
)

// FieldCompleted names the event for a contact field that passed validation
// on blur, e.g. contact_email_completed.
func FieldCompleted(field string) string {
	return "contact_" + field + "_completed"
}

var eventNamePattern = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// ValidName reports whether name is snake_case.
func ValidName(name string) bool {
	return len(name) <= 64 && eventNamePattern.MatchString(name)
}

// Noop discards every event.
type Noop struct{}

// Track implements Tracker.
func (Noop) Track(string) {}

// Func adapts a function to Tracker.
type Func func(name string)

// Track implements Tracker.
func (f Func) Track(name string) { f(name) }
