// Package submission delivers contact form and newsletter submissions to
// the configured backends.
package submission

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ciphera-net/website/internal/contact"
)

// Kind tells consumers how to route an envelope.
type Kind string

const (
	KindContact    Kind = "contact"
	KindNewsletter Kind = "newsletter"
)

// Envelope is the wire payload published to every channel.
type Envelope struct {
	ID         string         `json:"id" validate:"required"`
	Kind       Kind           `json:"kind" validate:"required,oneof=contact newsletter"`
	ReceivedAt time.Time      `json:"receivedAt" validate:"required"`
	Name       string         `json:"name,omitempty" validate:"required_if=Kind contact,max=200"`
	Email      string         `json:"email" validate:"required,contains=@,max=320"`
	Subject    string         `json:"subject,omitempty" validate:"required_if=Kind contact,max=80"`
	RouteTo    string         `json:"routeTo,omitempty"`
	Message    string         `json:"message,omitempty" validate:"required_if=Kind contact,max=1000"`
	BotCheck   *BotCheck      `json:"botCheck,omitempty" validate:"required_if=Kind contact"`
	Attachment *AttachmentRef `json:"attachment,omitempty"`
	Client     Client         `json:"client"`
}

// BotCheck records the verification presented with a submission.
type BotCheck struct {
	ID       string `json:"id" validate:"required"`
	Solution string `json:"solution" validate:"required"`
	Token    string `json:"token,omitempty"`
}

// AttachmentRef describes an uploaded file. Content is only carried inline
// when no attachment store is configured.
type AttachmentRef struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"contentType,omitempty" validate:"max=255"`
	Size        int64  `json:"size" validate:"gte=0,lte=5242880"`
	URI         string `json:"uri,omitempty"`
	Content     []byte `json:"content,omitempty"`
}

// Client is the visitor's request metadata.
type Client struct {
	RemoteIP  string `json:"remoteIp,omitempty" validate:"omitempty,ip"`
	UserAgent string `json:"userAgent,omitempty" validate:"max=512"`
	Locale    string `json:"locale,omitempty" validate:"max=35"`
}

// Attributes returns the routing attributes for message brokers.
func (e Envelope) Attributes() map[string]string {
	attrs := make(map[string]string)
	setAttr(attrs, "kind", string(e.Kind))
	setAttr(attrs, "submissionId", e.ID)
	setAttr(attrs, "subject", e.Subject)
	setAttr(attrs, "routeTo", e.RouteTo)
	setAttr(attrs, "locale", e.Client.Locale)
	if e.Attachment != nil {
		attrs["hasAttachment"] = "true"
	}
	return attrs
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

// ContactEnvelope converts a contact submission.
func ContactEnvelope(id string, receivedAt time.Time, s contact.Submission) Envelope {
	env := Envelope{
		ID:         id,
		Kind:       KindContact,
		ReceivedAt: receivedAt.UTC(),
		Name:       strings.TrimSpace(s.Name),
		Email:      strings.TrimSpace(s.Email),
		Subject:    string(s.Subject),
		RouteTo:    s.Subject.Routing(),
		Message:    s.Message,
		BotCheck: &BotCheck{
			ID:       s.BotCheck.ID,
			Solution: s.BotCheck.Solution,
			Token:    s.BotCheck.Token,
		},
		Client: Client(s.Client),
	}
	if a := s.Attachment; a != nil {
		env.Attachment = &AttachmentRef{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
		}
	}
	return env
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func envelopeValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the envelope before it leaves the process.
func (e Envelope) Validate() error {
	if err := envelopeValidator().Struct(e); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+":"+fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalidEnvelope, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return nil
}
