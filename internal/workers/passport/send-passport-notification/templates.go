// internal/workers/passport/send-passport-notification/templates.go
package sendpassportnotification

import (
	"fmt"
	"html"
	"strings"

	"passport-workers/internal/models"
)

var templates = map[string]models.NotificationTemplate{
	EventPassportReady: {
		Subject: "Your Credit Passport is ready: {{score}}/100",
		Text: "Hello {{name}},\n\n" +
			"Your Credit Passport scored {{score}}/100 ({{interpretation}}), overall risk {{risk}}.\n\n" +
			"{{headline}}\n\n" +
			"View the full report and recommendations at {{portalUrl}}.\n",
		HTML: "<p>Hello {{name}},</p>" +
			"<p>Your Credit Passport scored <strong>{{score}}/100</strong> ({{interpretation}}), overall risk {{risk}}.</p>" +
			"<p>{{headline}}</p>" +
			"<p><a href=\"{{portalUrl}}\">View the full report</a></p>",
		SMS: "{{name}}: your Credit Passport scored {{score}}/100 ({{interpretation}}). Details: {{portalUrl}}",
	},
	EventPassportShared: {
		Subject: "Your Credit Passport was shared",
		Text:    "Hello {{name}},\n\nYour Credit Passport ({{score}}/100) was shared with a lender. Manage sharing at {{portalUrl}}.\n",
		HTML:    "<p>Hello {{name}},</p><p>Your Credit Passport ({{score}}/100) was shared with a lender.</p><p><a href=\"{{portalUrl}}\">Manage sharing</a></p>",
		SMS:     "{{name}}: your Credit Passport ({{score}}/100) was shared with a lender.",
	},
}

// renderText fills a plain text template.
func renderText(tmpl string, data map[string]interface{}) string {
	return renderTemplate(tmpl, data, nil)
}

// renderHTML fills an HTML template with every value HTML-escaped.
func renderHTML(tmpl string, data map[string]interface{}) string {
	return renderTemplate(tmpl, data, html.EscapeString)
}

// renderTemplate replaces {{key}} placeholders in a single pass and drops
// unknown ones. Substituted values are never scanned for placeholders.
func renderTemplate(tmpl string, data map[string]interface{}, escape func(string) string) string {
	var b strings.Builder
	b.Grow(len(tmpl))
	for {
		start := strings.Index(tmpl, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(tmpl[start+2:], "}}")
		if end == -1 {
			break
		}
		b.WriteString(tmpl[:start])

		key := tmpl[start+2 : start+2+end]
		if v, ok := data[key]; ok && v != nil {
			value := fmt.Sprintf("%v", v)
			if escape != nil {
				value = escape(value)
			}
			b.WriteString(value)
		}
		tmpl = tmpl[start+2+end+2:]
	}
	b.WriteString(tmpl)
	return b.String()
}
