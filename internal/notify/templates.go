package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const dateLayout = "Jan 2, 2006"

var templates = template.Must(template.New("notify").Funcs(template.FuncMap{
	"date":  func(t time.Time) string { return t.Format(dateLayout) },
	"title": title,
}).Parse(`
{{define "application_submitted"}}<h2>New Leave Application</h2>
<p><strong>Student:</strong> {{.StudentName}}</p>
<p><strong>Leave Type:</strong> {{.LeaveType}}</p>
<p><strong>Start Date:</strong> {{date .StartDate}}</p>
<p><strong>End Date:</strong> {{date .EndDate}}</p>
<p><strong>Duration:</strong> {{.Duration}} day(s)</p>
<p><strong>Reason:</strong> {{.Reason}}</p>
<p>Please log in to review and approve/reject this leave application.</p>
{{end}}
{{define "decision_made"}}<h2>Leave Application {{title .Status}}</h2>
<p>Your leave application has been <strong>{{.Status}}</strong>.</p>
<p><strong>Leave Type:</strong> {{.LeaveType}}</p>
<p><strong>Start Date:</strong> {{date .StartDate}}</p>
<p><strong>End Date:</strong> {{date .EndDate}}</p>
{{if .Comment}}<p><strong>Comment:</strong> {{.Comment}}</p>
{{end}}{{end}}`))

// Render returns the subject and HTML body for e.
func Render(e Event) (subject, body string, err error) {
	switch e.Kind {
	case KindApplicationSubmitted:
		subject = "New Leave Application"
	case KindDecisionMade:
		subject = "Leave Application " + title(e.Payload.Status)
	default:
		return "", "", fmt.Errorf("render notification: unknown kind %q", e.Kind)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(e.Kind), e.Payload); err != nil {
		return "", "", fmt.Errorf("render notification: %w", err)
	}
	return subject, strings.TrimSpace(buf.String()), nil
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
