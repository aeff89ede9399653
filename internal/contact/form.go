package contact

import (
	"context"

	"github.com/ciphera-net/website/internal/captcha"
)

// Attachment is an uploaded file held until submission.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Content     []byte
}

// Form is the visitor's current input.
type Form struct {
	Name        string
	Email       string
	Subject     Subject
	Message     string
	GDPRConsent bool
	Attachment  *Attachment
	BotCheck    captcha.Verification
}

// NewForm returns an empty form with the default subject.
func NewForm() Form {
	return Form{Subject: DefaultSubject}
}

// Submission is the payload handed to a Submitter.
type Submission struct {
	Name       string
	Email      string
	Subject    Subject
	Message    string
	Attachment *Attachment
	BotCheck   captcha.Verification
	Client     ClientInfo
}

// ClientInfo describes the visitor's request.
type ClientInfo struct {
	RemoteIP  string
	UserAgent string
	Locale    string
}

// Submitter delivers a submission. It must honour ctx cancellation.
type Submitter interface {
	Submit(ctx context.Context, s Submission) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, s Submission) error

// Submit implements Submitter.
func (f SubmitterFunc) Submit(ctx context.Context, s Submission) error { return f(ctx, s) }

type clientInfoKey struct{}

// WithClientInfo attaches request metadata that Submit copies into the
// submission.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFrom returns the metadata stored by WithClientInfo.
func ClientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}

func (f Form) submission(client ClientInfo) Submission {
	return Submission{
		Name:       f.Name,
		Email:      f.Email,
		Subject:    f.Subject,
		Message:    f.Message,
		Attachment: f.Attachment,
		BotCheck:   f.BotCheck,
		Client:     client,
	}
}
