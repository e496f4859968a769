package email

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"barbershop/internal/models"
)

// Fields arrive pre-escaped where needed; text/template keeps them as given.
const confirmationHTML = `<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: linear-gradient(135deg, #000000, #1a1a1a); color: #D4AF37; padding: 30px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #ffffff; padding: 30px; border: 1px solid #e0e0e0; }
    .booking-details { background: #f9f9f9; padding: 20px; border-left: 4px solid #D4AF37; margin: 20px 0; }
    .footer { background: #f5f5f5; padding: 20px; text-align: center; border-radius: 0 0 8px 8px; font-size: 12px; color: #666; }
    h1 { margin: 0; font-size: 28px; }
    h2 { color: #D4AF37; margin-top: 0; }
    .detail-row { margin: 10px 0; }
    .label { font-weight: bold; color: #000; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Gentlemen's Club Barber Shop</h1>
      <p style="margin: 10px 0 0 0; font-size: 16px;">Where Tradition Meets Excellence</p>
    </div>
    <div class="content">
      <h2>Thank you for your booking, {{.Name}}!</h2>
      <p>We have received your booking request and will confirm your appointment shortly.</p>
      <div class="booking-details">
        <h3 style="margin-top: 0; color: #000;">Booking Details:</h3>
        <div class="detail-row"><span class="label">Service:</span> {{.Service}}</div>
        <div class="detail-row"><span class="label">Preferred Date:</span> {{.PreferredDate}}</div>
        <div class="detail-row"><span class="label">Preferred Time:</span> {{.PreferredTime}}</div>
        <div class="detail-row"><span class="label">Phone:</span> {{.Phone}}</div>
        {{- if .Notes}}
        <div class="detail-row"><span class="label">Notes:</span> {{.Notes}}</div>
        {{- end}}
      </div>
      <p><strong>What's next?</strong></p>
      <ul>
        <li>We will review your booking request</li>
        <li>You will receive a confirmation call or email within 24 hours</li>
        <li>Please arrive 5 minutes before your scheduled time</li>
      </ul>
      <p>If you need to make any changes to your booking, please contact us:</p>
      <p>
        Mandela Square, Sandton City<br>
        +27 086 666 621<br>
        gentlemensclub@gmail.com
      </p>
    </div>
    <div class="footer">
      <p>&copy; {{.Year}} Gentlemen's Club Barber Shop. All rights reserved.</p>
      <p>Mandela Square, Sandton City | +27 086 666 621</p>
    </div>
  </div>
</body>
</html>
`

var confirmationTmpl = template.Must(template.New("confirmation").Parse(confirmationHTML))

type confirmationView struct {
	Name          string
	Service       string
	PreferredDate string
	PreferredTime string
	Phone         string
	Notes         string
	Year          int
}

// Renderer formats confirmation emails. The footer year comes from now.
type Renderer struct {
	now func() time.Time
}

func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

func (r *Renderer) Render(c *models.Confirmation) (string, error) {
	if c == nil {
		return "", fmt.Errorf("nil confirmation")
	}
	view := confirmationView{
		Name:          c.Name,
		Service:       c.Service,
		PreferredDate: c.PreferredDate,
		PreferredTime: c.PreferredTime,
		Phone:         c.Phone,
		Year:          r.now().Year(),
	}
	if c.Notes != nil {
		view.Notes = *c.Notes
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render confirmation: %w", err)
	}
	return buf.String(), nil
}
