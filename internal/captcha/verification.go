// Package captcha models the bot-check widget result and verifies it
// against the Ciphera Captcha service.
package captcha

import "strings"

// Verification is what the widget reports once a challenge is solved.
type Verification struct {
	ID       string
	Solution string
	Token    string
}

// Complete reports whether the widget produced both an id and a solution.
// The token is optional.
func (v Verification) Complete() bool {
	return strings.TrimSpace(v.ID) != "" && strings.TrimSpace(v.Solution) != ""
}

// IsZero reports whether nothing was reported.
func (v Verification) IsZero() bool {
	return v == Verification{}
}
