// internal/notifications/templates.go - alert message rendering
package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"
)

// AlertData is the input to every alert template.
type AlertData struct {
	Name  string
	URL   string
	Error string
	Time  string
}

// EmailContent is a rendered email without addressing.
type EmailContent struct {
	Subject string
	Text    string
	HTML    string
}

var (
	downSubject = template.Must(template.New("down_subject").Parse(`🔴 {{.Name}} is Down`))
	downText    = template.Must(template.New("down_text").Parse(
		"Your website {{.Name}} ({{.URL}}) is currently down.\n\n" +
			"{{if .Error}}Error: {{.Error}}{{else}}Please check your website immediately.{{end}}\n\n" +
			"Time: {{.Time}}"))
	downHTML = htmltemplate.Must(htmltemplate.New("down_html").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #fee2e2; border: 1px solid #fecaca; border-radius: 8px; padding: 16px; margin-bottom: 16px;">
    <h2 style="color: #dc2626; margin: 0;">🔴 Website Down Alert</h2>
  </div>
  <p>Your website <strong>{{.Name}}</strong> is currently down.</p>
  <p><strong>URL:</strong> {{.URL}}</p>
  {{if .Error}}<p><strong>Error:</strong> {{.Error}}</p>{{end}}
  <p><strong>Time:</strong> {{.Time}}</p>
  <p>Please check your website immediately.</p>
</div>`))

	upSubject = template.Must(template.New("up_subject").Parse(`✅ {{.Name}} is Back Online`))
	upText    = template.Must(template.New("up_text").Parse(
		"Good news! Your website {{.Name}} ({{.URL}}) is back online.\n\nTime: {{.Time}}"))
	upHTML = htmltemplate.Must(htmltemplate.New("up_html").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #dcfce7; border: 1px solid #bbf7d0; border-radius: 8px; padding: 16px; margin-bottom: 16px;">
    <h2 style="color: #16a34a; margin: 0;">✅ Website Restored</h2>
  </div>
  <p>Good news! Your website <strong>{{.Name}}</strong> is back online.</p>
  <p><strong>URL:</strong> {{.URL}}</p>
  <p><strong>Time:</strong> {{.Time}}</p>
</div>`))

	downSMS = template.Must(template.New("down_sms").Parse(
		`ALERT: {{.Name}} is DOWN ({{.URL}}){{if .Error}} - {{.Error}}{{end}}`))
	upSMS = template.Must(template.New("up_sms").Parse(
		`RESOLVED: {{.Name}} is back online ({{.URL}})`))

	testSubject = template.Must(template.New("test_subject").Parse(`webmonitor test notification`))
	testText    = template.Must(template.New("test_text").Parse(
		"This is a test notification from webmonitor.\n\nTime: {{.Time}}"))
	testHTML = htmltemplate.Must(htmltemplate.New("test_html").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Test Notification</h2>
  <p>This is a test notification from webmonitor.</p>
  <p><strong>Time:</strong> {{.Time}}</p>
</div>`))
)

const testSMSBody = "webmonitor test notification: SMS delivery is working."

// DowntimeEmail renders the down alert. errDetail may be empty.
func DowntimeEmail(name, url, errDetail string, at time.Time) (EmailContent, error) {
	data := newAlertData(name, url, errDetail, at)
	return renderEmail(data, downSubject, downText, downHTML)
}

// RestoredEmail renders the recovery notice.
func RestoredEmail(name, url string, at time.Time) (EmailContent, error) {
	data := newAlertData(name, url, "", at)
	return renderEmail(data, upSubject, upText, upHTML)
}

func DowntimeSMS(name, url, errDetail string) (string, error) {
	return renderText(downSMS, newAlertData(name, url, errDetail, time.Time{}))
}

func RestoredSMS(name, url string) (string, error) {
	return renderText(upSMS, newAlertData(name, url, "", time.Time{}))
}

// TestEmail renders the message sent by the settings test action.
func TestEmail(at time.Time) (EmailContent, error) {
	data := newAlertData("", "", "", at)
	return renderEmail(data, testSubject, testText, testHTML)
}

func TestSMS() string {
	return testSMSBody
}

func newAlertData(name, url, errDetail string, at time.Time) AlertData {
	return AlertData{
		Name:  name,
		URL:   url,
		Error: errDetail,
		Time:  at.Format("2006-01-02 15:04:05 MST"),
	}
}

func renderEmail(data AlertData, subject, text *template.Template, html *htmltemplate.Template) (EmailContent, error) {
	var content EmailContent
	var err error

	if content.Subject, err = renderText(subject, data); err != nil {
		return EmailContent{}, err
	}
	if content.Text, err = renderText(text, data); err != nil {
		return EmailContent{}, err
	}

	var buf bytes.Buffer
	if err := html.Execute(&buf, data); err != nil {
		return EmailContent{}, fmt.Errorf("failed to execute template %s: %w", html.Name(), err)
	}
	content.HTML = buf.String()

	return content, nil
}

func renderText(tmpl *template.Template, data AlertData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
