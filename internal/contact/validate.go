package contact

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field identifies a validated form input.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldSubject Field = "subject"
	FieldMessage Field = "message"
)

// ParseField maps a form input name to a Field.
func ParseField(value string) (Field, bool) {
	switch f := Field(strings.ToLower(strings.TrimSpace(value))); f {
	case FieldName, FieldEmail, FieldSubject, FieldMessage:
		return f, true
	}
	return "", false
}

const (
	MinNameLength      = 2
	MinMessageLength   = 10
	MaxMessageLength   = 1000
	MaxAttachmentBytes = 5 * 1024 * 1024
)

// User-facing messages.
const (
	MsgNameTooShort       = "Name must be at least 2 characters"
	MsgEmailInvalid       = "Please enter a valid email address"
	MsgMessageTooShort    = "Message must be at least 10 characters"
	MsgMessageTooLong     = "Message must not exceed 1000 characters"
	MsgFixErrors          = "Please fix the errors above before submitting"
	MsgCaptchaRequired    = "Please complete the captcha verification"
	MsgConsentRequired    = "Please accept the privacy policy to continue"
	MsgAttachmentTooLarge = "File size must not exceed 5MB"
	MsgAttachmentType     = "Unsupported file type"
	MsgSubmitFailed       = "Failed to send message. Please try again or email us directly."
)

// Whitespace classes mirror what browsers treat as \s, which is wider than
// RE2's ASCII-only \s.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}@]+@[^\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}@]+\.[^\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}@]+$`)

// FieldErrors maps fields to their current error message.
type FieldErrors map[Field]string

// Any reports whether at least one field has an error.
func (e FieldErrors) Any() bool {
	for _, msg := range e {
		if msg != "" {
			return true
		}
	}
	return false
}

func (e FieldErrors) clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// ValidateName returns an error message or "".
func ValidateName(name string) string {
	if utf8.RuneCountInString(name) < MinNameLength {
		return MsgNameTooShort
	}
	return ""
}

// ValidateEmail returns an error message or "".
func ValidateEmail(email string) string {
	if !emailPattern.MatchString(email) {
		return MsgEmailInvalid
	}
	return ""
}

// ValidateMessage returns an error message or "".
func ValidateMessage(message string) string {
	n := utf8.RuneCountInString(message)
	switch {
	case n < MinMessageLength:
		return MsgMessageTooShort
	case n > MaxMessageLength:
		return MsgMessageTooLong
	}
	return ""
}

// ValidateField dispatches to the validator for field. Fields without
// rules are always valid.
func ValidateField(field Field, value string) string {
	switch field {
	case FieldName:
		return ValidateName(value)
	case FieldEmail:
		return ValidateEmail(value)
	case FieldMessage:
		return ValidateMessage(value)
	}
	return ""
}

// ValidateAll checks name, email and message together.
func ValidateAll(f Form) FieldErrors {
	errs := FieldErrors{}
	for field, value := range map[Field]string{
		FieldName:    f.Name,
		FieldEmail:   f.Email,
		FieldMessage: f.Message,
	} {
		if msg := ValidateField(field, value); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}

var attachmentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".heic": true,
}

// AllowedAttachment accepts images, PDF, Word documents and plain text,
// judged by content type or file extension.
func AllowedAttachment(filename, contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if mediaType, _, ok := strings.Cut(contentType, ";"); ok {
		contentType = strings.TrimSpace(mediaType)
	}
	switch {
	case strings.HasPrefix(contentType, "image/"),
		contentType == "application/pdf",
		contentType == "application/msword",
		contentType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		contentType == "text/plain":
		return true
	}
	return attachmentExtensions[strings.ToLower(filepath.Ext(filename))]
}
