package contact

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestValidationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1207)
	parameters.MinSuccessfulTests = 300

	properties := gopter.NewProperties(parameters)

	properties.Property("name is valid iff it has at least two characters", prop.ForAll(
		func(name string) bool {
			return (ValidateName(name) == "") == (utf8.RuneCountInString(name) >= MinNameLength)
		},
		gen.AnyString(),
	))

	properties.Property("message validity matches the length window", prop.ForAll(
		func(n int) bool {
			msg := ValidateMessage(strings.Repeat("x", n))
			switch {
			case n < MinMessageLength:
				return msg == MsgMessageTooShort
			case n > MaxMessageLength:
				return msg == MsgMessageTooLong
			default:
				return msg == ""
			}
		},
		gen.IntRange(0, 1200),
	))

	properties.Property("well formed addresses are accepted", prop.ForAll(
		func(local, domain, tld string) bool {
			return ValidateEmail(local+"@"+domain+"."+tld) == ""
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.RegexMatch(`[a-z]{2,6}`),
	))

	properties.Property("strings without @ are rejected", prop.ForAll(
		func(s string) bool {
			return ValidateEmail(strings.ReplaceAll(s, "@", "")) == MsgEmailInvalid
		},
		gen.AnyString(),
	))

	properties.Property("stored message never exceeds the maximum", prop.ForAll(
		func(inputs []string) bool {
			c := NewController(SubmitterFunc(succeed))
			for _, in := range inputs {
				_ = c.SetField(FieldMessage, in)
				if c.Snapshot().MessageLength() > MaxMessageLength {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.OneGenOf(
			gen.AnyString(),
			gen.IntRange(990, 1010).Map(func(n int) string { return strings.Repeat("ß", n) }),
		)),
	))

	properties.TestingRun(t)
}
