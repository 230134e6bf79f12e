package dispatch

import "strings"

// RenderBody substitutes the two recognized placeholders in the message
// template: {{kr_nr}} becomes the row's reference code, {{full_address}}
// becomes the configured address prefix concatenated with the reference
// code. Anything else, including unknown {{...}} tokens, passes through
// verbatim.
func RenderBody(template, refCode, addressPrefix string) string {
	r := strings.NewReplacer(
		"{{kr_nr}}", refCode,
		"{{full_address}}", addressPrefix+refCode,
	)
	return r.Replace(template)
}
