package main

import (
	"net/http"

	"github.com/ciphera-net/website/internal/contact"
	mw "github.com/ciphera-net/website/internal/middleware"
)

// contactField is one text input with its current error.
type contactField struct {
	Name  string
	Value string
	Error string
}

// contactView is the template model of a visitor's contact form.
type contactView struct {
	Lang      string
	CSRFToken string

	Status          string
	Name            contactField
	Email           contactField
	Message         contactField
	Subject         string
	Subjects        []string
	Consent         bool
	Verified        bool
	Attachment      *contact.Attachment
	AttachmentError string
	Banner          string
	SubmitEnabled   bool
	Polling         bool

	MessageLength int
	MaxMessage    int
	MaxAttachment int64

	CaptchaSiteKey string
	CaptchaAPIURL  string
}

func (a *app) contactViewFor(r *http.Request, snap contact.Snapshot) contactView {
	subjects := contact.Subjects()
	names := make([]string, len(subjects))
	for i, s := range subjects {
		names[i] = string(s)
	}
	return contactView{
		Lang:            mw.Lang(r),
		CSRFToken:       mw.CSRFToken(r),
		Status:          snap.Status.String(),
		Name:            contactField{Name: string(contact.FieldName), Value: snap.Form.Name, Error: snap.Errors[contact.FieldName]},
		Email:           contactField{Name: string(contact.FieldEmail), Value: snap.Form.Email, Error: snap.Errors[contact.FieldEmail]},
		Message:         contactField{Name: string(contact.FieldMessage), Value: snap.Form.Message, Error: snap.Errors[contact.FieldMessage]},
		Subject:         string(snap.Form.Subject),
		Subjects:        names,
		Consent:         snap.Form.GDPRConsent,
		Verified:        snap.Form.BotCheck.Complete(),
		Attachment:      snap.Form.Attachment,
		AttachmentError: snap.AttachmentError,
		Banner:          snap.Banner,
		SubmitEnabled:   snap.SubmitEnabled(),
		Polling:         snap.Status == contact.StatusSuccess || snap.Status == contact.StatusError,
		MessageLength:   snap.MessageLength(),
		MaxMessage:      contact.MaxMessageLength,
		MaxAttachment:   contact.MaxAttachmentBytes,
		CaptchaSiteKey:  a.cfg.Captcha.SiteKey,
		CaptchaAPIURL:   a.cfg.Captcha.APIURL,
	}
}

// contactResult is the JSON answer to a submission.
type contactResult struct {
	Status string            `json:"status"`
	Banner string            `json:"banner,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func newContactResult(snap contact.Snapshot) contactResult {
	res := contactResult{Status: snap.Status.String(), Banner: snap.Banner}
	for field, msg := range snap.Errors {
		if msg == "" {
			continue
		}
		if res.Errors == nil {
			res.Errors = map[string]string{}
		}
		res.Errors[string(field)] = msg
	}
	if snap.AttachmentError != "" {
		if res.Errors == nil {
			res.Errors = map[string]string{}
		}
		res.Errors["attachment"] = snap.AttachmentError
	}
	return res
}
