package main

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ciphera-net/website/internal/captcha"
	"github.com/ciphera-net/website/internal/contact"
	mw "github.com/ciphera-net/website/internal/middleware"
	"github.com/ciphera-net/website/internal/platform/httpx"
	"github.com/ciphera-net/website/internal/platform/requestctx"
	"github.com/ciphera-net/website/internal/seo"
)

const (
	attachmentField = "attachment"
	multipartMemory = 8 << 20
)

var errNoAttachment = errors.New("no attachment in request")

// form returns the visitor's contact controller.
func (a *app) form(r *http.Request) *contact.Controller {
	return a.forms.Get(mw.GetSession(r).ID)
}

// contactPage renders the contact page with the visitor's current form.
func (a *app) contactPage(w http.ResponseWriter, r *http.Request) {
	a.renderContactPage(w, r, http.StatusOK, a.form(r).Snapshot())
}

func (a *app) renderContactPage(w http.ResponseWriter, r *http.Request, status int, snap contact.Snapshot) {
	vm := a.newPage(r, "contact.title", "contact.description", nil)
	vm.Contact = a.contactViewFor(r, snap)
	mailboxes := map[string]string{}
	for _, s := range []contact.Subject{contact.SubjectGeneral, contact.SubjectSecurity, contact.SubjectPartnership} {
		mailboxes[strings.ToLower(string(s))] = s.Routing()
	}
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.ContactPage(vm.SEO.Canonical, "Ciphera", mailboxes)))
	a.renderPage(w, r, status, "contact", vm)
}

// contactStatus renders the banner and submit control. The fragment keeps
// polling itself while a success or error outcome is on display.
func (a *app) contactStatus(w http.ResponseWriter, r *http.Request) {
	snap := a.form(r).Snapshot()
	if wantsJSON(r) {
		httpx.WriteJSON(w, http.StatusOK, newContactResult(snap))
		return
	}
	a.renderFragment(w, r, http.StatusOK, "frag_contact_actions", a.contactViewFor(r, snap))
}

// contactInput stores typed input. The message field answers with the
// updated character counter.
func (a *app) contactInput(w http.ResponseWriter, r *http.Request) {
	field, ok := contact.ParseField(chi.URLParam(r, "field"))
	if !ok {
		a.notFound(w, r)
		return
	}
	c := a.form(r)
	if err := c.SetField(field, r.PostFormValue(string(field))); err != nil {
		if errors.Is(err, contact.ErrMessageTooLong) {
			a.renderFragment(w, r, http.StatusUnprocessableEntity, "frag_contact_counter", a.contactViewFor(r, c.Snapshot()))
			return
		}
		a.fieldError(w, r, err)
		return
	}
	if field != contact.FieldMessage {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	a.renderFragment(w, r, http.StatusOK, "frag_contact_counter", a.contactViewFor(r, c.Snapshot()))
}

// contactValidate stores the value of a field that lost focus and renders
// its error slot.
func (a *app) contactValidate(w http.ResponseWriter, r *http.Request) {
	field, ok := contact.ParseField(chi.URLParam(r, "field"))
	if !ok {
		a.notFound(w, r)
		return
	}
	c := a.form(r)
	if err := c.SetField(field, r.PostFormValue(string(field))); err != nil {
		a.fieldError(w, r, err)
		return
	}
	data := contactField{Name: string(field), Error: c.Blur(field)}
	a.renderFragment(w, r, http.StatusOK, "frag_contact_field_error", data)
}

// contactAttach receives the selected file.
func (a *app) contactAttach(w http.ResponseWriter, r *http.Request) {
	c := a.form(r)
	att, err := readAttachment(w, r)
	switch {
	case errors.Is(err, errNoAttachment):
		a.badRequest(w, r, "attachment_missing", "no file selected")
		return
	case isTooLarge(err):
		_ = c.SelectAttachment(contact.Attachment{Size: contact.MaxAttachmentBytes + 1})
	case err != nil:
		a.badRequest(w, r, "attachment_unreadable", "could not read file")
		return
	default:
		_ = c.SelectAttachment(att)
	}
	a.renderFragment(w, r, http.StatusOK, "frag_contact_attachment", a.contactViewFor(r, c.Snapshot()))
}

// contactDetach drops the attachment.
func (a *app) contactDetach(w http.ResponseWriter, r *http.Request) {
	c := a.form(r)
	c.RemoveAttachment()
	a.renderFragment(w, r, http.StatusOK, "frag_contact_attachment", a.contactViewFor(r, c.Snapshot()))
}

// contactVerification relays the bot-check widget result. Empty values
// clear an expired verification.
func (a *app) contactVerification(w http.ResponseWriter, r *http.Request) {
	reportVerification(a.form(r), r)
	w.WriteHeader(http.StatusNoContent)
}

// contactConsent records the privacy checkbox.
func (a *app) contactConsent(w http.ResponseWriter, r *http.Request) {
	a.form(r).SetConsent(consentValue(r.PostFormValue("gdpr_consent")))
	w.WriteHeader(http.StatusNoContent)
}

// contactLeave closes the form when the visitor navigates away.
func (a *app) contactLeave(w http.ResponseWriter, r *http.Request) {
	a.forms.Release(mw.GetSession(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

// contactSubmit applies the posted form and submits it in one step, so a
// post outside the idle state changes nothing. htmx callers get the
// re-rendered form, JSON callers a status document and browsers the full
// page.
func (a *app) contactSubmit(w http.ResponseWriter, r *http.Request) {
	c := a.form(r)
	var in contact.Input
	if err := parseForm(w, r); err != nil {
		if !isTooLarge(err) {
			a.badRequest(w, r, "invalid_form", "could not parse form")
			return
		}
		in.Attachment = &contact.Attachment{Size: contact.MaxAttachmentBytes + 1}
	} else {
		in.Fields = map[contact.Field]string{}
		for _, field := range []contact.Field{contact.FieldName, contact.FieldEmail, contact.FieldSubject, contact.FieldMessage} {
			if _, present := r.PostForm[string(field)]; present {
				in.Fields[field] = r.PostFormValue(string(field))
			}
		}
		consent := consentValue(r.PostFormValue("gdpr_consent"))
		in.Consent = &consent
		if _, present := r.PostForm["captcha_id"]; present {
			v := verificationFrom(r)
			in.Verification = &v
		}

		att, err := readAttachment(w, r)
		switch {
		case errors.Is(err, errNoAttachment):
		case isTooLarge(err):
			in.Attachment = &contact.Attachment{Size: contact.MaxAttachmentBytes + 1}
		case err != nil:
			a.badRequest(w, r, "attachment_unreadable", "could not read file")
			return
		default:
			in.Attachment = &att
		}
	}

	ctx := contact.WithClientInfo(r.Context(), contact.ClientInfo{
		RemoteIP:  mw.ClientIP(r),
		UserAgent: r.UserAgent(),
		Locale:    mw.Lang(r),
	})
	snap, err := c.SubmitInput(ctx, in)
	switch {
	case errors.Is(err, contact.ErrUnknownSubject), errors.Is(err, contact.ErrUnknownField):
		a.fieldError(w, r, err)
		return
	case errors.Is(err, contact.ErrClosed):
		snap = a.form(r).Snapshot()
	}
	if err != nil {
		requestctx.Logger(r.Context()).Info("contact submit rejected", zap.Error(err), zap.String("status", snap.Status.String()))
	}
	a.respondContact(w, r, snap, err)
}

func (a *app) respondContact(w http.ResponseWriter, r *http.Request, snap contact.Snapshot, err error) {
	status := submitStatus(err)
	switch {
	case wantsJSON(r):
		httpx.WriteJSON(w, status, newContactResult(snap))
	case mw.IsHTMX(r.Context()):
		w.Header().Set("HX-Trigger", `{"contact:status":"`+snap.Status.String()+`"}`)
		a.renderFragment(w, r, http.StatusOK, "frag_contact_form", a.contactViewFor(r, snap))
	default:
		a.renderContactPage(w, r, status, snap)
	}
}

func submitStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, contact.ErrInvalidFields),
		errors.Is(err, contact.ErrVerificationRequired),
		errors.Is(err, contact.ErrConsentRequired),
		errors.Is(err, contact.ErrMessageTooLong),
		errors.Is(err, contact.ErrAttachmentTooLarge),
		errors.Is(err, contact.ErrAttachmentType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, contact.ErrNotIdle), errors.Is(err, contact.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, contact.ErrSubmitFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *app) fieldError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, contact.ErrMessageTooLong):
		a.writeJSONError(w, r, http.StatusUnprocessableEntity, "message_too_long", contact.MsgMessageTooLong)
	case errors.Is(err, contact.ErrUnknownSubject):
		a.badRequest(w, r, "invalid_subject", "unknown subject")
	case errors.Is(err, contact.ErrUnknownField):
		a.badRequest(w, r, "invalid_field", "unknown field")
	default:
		a.badRequest(w, r, "invalid_input", err.Error())
	}
}

func reportVerification(c contact.VerificationReporter, r *http.Request) {
	v := verificationFrom(r)
	c.ReportVerification(v.ID, v.Solution, v.Token)
}

func verificationFrom(r *http.Request) captcha.Verification {
	return captcha.Verification{
		ID:       strings.TrimSpace(r.PostFormValue("captcha_id")),
		Solution: strings.TrimSpace(r.PostFormValue("captcha_solution")),
		Token:    strings.TrimSpace(r.PostFormValue("captcha_token")),
	}
}

func consentValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// parseForm parses the body once, capped at the form size limit. Bodies
// over the cap surface as *http.MaxBytesError.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	if r.PostForm != nil {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, mw.MaxFormBytes)
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

// readAttachment reads the uploaded file, errNoAttachment when none was sent.
func readAttachment(w http.ResponseWriter, r *http.Request) (contact.Attachment, error) {
	if err := parseForm(w, r); err != nil {
		return contact.Attachment{}, err
	}
	file, header, err := r.FormFile(attachmentField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return contact.Attachment{}, errNoAttachment
	}
	if err != nil {
		return contact.Attachment{}, err
	}
	defer file.Close()
	return attachmentFrom(file, header)
}

func attachmentFrom(file multipart.File, header *multipart.FileHeader) (contact.Attachment, error) {
	if header.Size > contact.MaxAttachmentBytes {
		return contact.Attachment{Filename: header.Filename, Size: header.Size}, nil
	}
	content, err := io.ReadAll(io.LimitReader(file, contact.MaxAttachmentBytes+1))
	if err != nil {
		return contact.Attachment{}, err
	}
	return contact.Attachment{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(content)),
		Content:     content,
	}, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
