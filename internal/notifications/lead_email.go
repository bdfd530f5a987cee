package notifications

import (
	"bytes"
	"html/template"

	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
)

const contactNotificationTemplate = `<!DOCTYPE html>
<html>
<body>
  <h3>New contact enquiry</h3>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  <p><strong>Phone:</strong> {{.Phone}}</p>
  {{if .ServiceID}}<p><strong>Service:</strong> {{.ServiceID}}</p>{{end}}
  <p><strong>ID:</strong> {{.ID}}</p>
  <p><strong>Message:</strong><br/>{{.Message}}</p>
</body>
</html>`

const sampleReportNotificationTemplate = `<!DOCTYPE html>
<html>
<body>
  <h3>New sample report request</h3>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  <p><strong>Phone:</strong> {{.Phone}}</p>
  <p><strong>Birth date:</strong> {{.BirthDate}}</p>
  {{if .BirthTime}}<p><strong>Birth time:</strong> {{.BirthTime}}</p>{{end}}
  {{if .BirthPlace}}<p><strong>Birth place:</strong> {{.BirthPlace}}</p>{{end}}
  <p><strong>ID:</strong> {{.ID}}</p>
</body>
</html>`

const orderConfirmationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Namaste {{.Name}},</p>
  <p>Your payment is confirmed and your consultation is booked.</p>
  <p><strong>Order reference: {{.OrderCode}}</strong></p>
  <ul>
    <li>Service: {{.ServiceName}}</li>
    <li>Amount paid: {{.FormattedPrice}}</li>
  </ul>
  <p>Keep this reference handy. Our team will reach out to schedule your session.</p>
  <p>Thank you.</p>
</body>
</html>`

var contactNotificationTmpl = template.Must(template.New("contact_notification").Parse(contactNotificationTemplate))
var sampleReportNotificationTmpl = template.Must(template.New("sample_report_notification").Parse(sampleReportNotificationTemplate))
var orderConfirmationTmpl = template.Must(template.New("order_confirmation").Parse(orderConfirmationTemplate))

type orderConfirmationData struct {
	Name           string
	OrderCode      string
	ServiceName    string
	FormattedPrice string
}

func buildContactNotificationHTML(contact models.Contact) (string, error) {
	var buf bytes.Buffer
	if err := contactNotificationTmpl.Execute(&buf, contact); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildSampleReportNotificationHTML(req models.SampleReportRequest) (string, error) {
	var buf bytes.Buffer
	if err := sampleReportNotificationTmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildOrderConfirmationHTML(data orderConfirmationData) (string, error) {
	if data.Name == "" {
		data.Name = "there"
	}
	var buf bytes.Buffer
	if err := orderConfirmationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
