package contact

import "strings"

// Subject is the topic picked from the contact form dropdown.
type Subject string

const (
	SubjectGeneral     Subject = "General Inquiry"
	SubjectSecurity    Subject = "Security Issue"
	SubjectPartnership Subject = "Business Partnership"
	SubjectSupport     Subject = "Technical Support"
	SubjectFeature     Subject = "Feature Request"
	SubjectOther       Subject = "Other"

	DefaultSubject = SubjectGeneral
)

var subjects = []Subject{
	SubjectGeneral,
	SubjectSecurity,
	SubjectPartnership,
	SubjectSupport,
	SubjectFeature,
	SubjectOther,
}

// Subjects lists the selectable subjects in display order.
func Subjects() []Subject {
	return append([]Subject(nil), subjects...)
}

// ParseSubject matches value against the known subjects, ignoring case and
// surrounding space.
func ParseSubject(value string) (Subject, bool) {
	value = strings.TrimSpace(value)
	for _, s := range subjects {
		if strings.EqualFold(string(s), value) {
			return s, true
		}
	}
	return "", false
}

// Routing returns the mailbox a subject is routed to.
func (s Subject) Routing() string {
	switch s {
	case SubjectSecurity:
		return "security@ciphera.net"
	case SubjectPartnership:
		return "business@ciphera.net"
	default:
		return "hello@ciphera.net"
	}
}
