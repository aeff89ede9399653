package main

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ciphera-net/website/internal/contact"
	mw "github.com/ciphera-net/website/internal/middleware"
	"github.com/ciphera-net/website/internal/newsletter"
	"github.com/ciphera-net/website/internal/platform/httpx"
	"github.com/ciphera-net/website/internal/platform/requestctx"
)

// newsletterView is the footer sign-up form state.
type newsletterView struct {
	Lang      string
	CSRFToken string
	Email     string
	Error     string
	Done      bool
}

// newsletterSignup subscribes the posted address.
func (a *app) newsletterSignup(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	view := newsletterView{Lang: mw.Lang(r), CSRFToken: mw.CSRFToken(r), Email: email}

	err := a.signups.Subscribe(r.Context(), email, contact.ClientInfo{
		RemoteIP:  mw.ClientIP(r),
		UserAgent: r.UserAgent(),
		Locale:    view.Lang,
	})
	status := http.StatusOK
	var verr *newsletter.ValidationError
	switch {
	case err == nil:
		view.Done = true
		view.Email = ""
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		view.Error = verr.Message
	default:
		requestctx.Logger(r.Context()).Warn("newsletter signup failed", zap.Error(err))
		status = http.StatusBadGateway
		view.Error = a.bundle.T(view.Lang, "newsletter.error")
	}

	switch {
	case wantsJSON(r):
		if err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("newsletter_failed", view.Error, status))
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "subscribed"})
	case mw.IsHTMX(r.Context()):
		a.renderFragment(w, r, http.StatusOK, "frag_newsletter", view)
	default:
		vm := a.newPage(r, "newsletter.title", "newsletter.description", nil)
		vm.Newsletter = view
		a.renderPage(w, r, status, "newsletter", vm)
	}
}
