package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var (
	confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<html>
<body>
	<h2>Welcome, {{.Name}}!</h2>
	<p>Thank you for registering as a blood donor.</p>
	<p>Your reference code is <strong>{{.ReferenceCode}}</strong>. Keep it for your records.</p>
	<p>Blood type on file: <strong>{{.BloodType}}</strong></p>
	<p>We will contact you when a donation appointment is available.</p>
</body>
</html>`))

	reminderTmpl = template.Must(template.New("reminder").Parse(`
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>It has been 90 days since your last donation on <strong>{{.LastDonationDate}}</strong>.</p>
	<p>You are eligible to donate again. Donors like you keep our blood bank stocked.</p>
	<p>Reference code: <strong>{{.ReferenceCode}}</strong><br>
	Blood type: <strong>{{.BloodType}}</strong></p>
	<p>Please visit us or book an appointment to donate again.</p>
</body>
</html>`))

	approvalTmpl = template.Must(template.New("approval").Parse(`
<html>
<body>
	<h2>Good news, {{.Name}}!</h2>
	<p>Your donor application has been approved.</p>
	<p>Reference code: <strong>{{.ReferenceCode}}</strong></p>
	<p>We will reach out to schedule your first donation appointment.</p>
</body>
</html>`))

	passwordResetTmpl = template.Must(template.New("password_reset").Parse(`
<html>
<body>
	<h2>Password reset</h2>
	<p>A password reset was requested for your account.</p>
	<p>Use this code to reset your password: <strong>{{.Token}}</strong></p>
	<p>If you did not request this, you can ignore this email.</p>
</body>
</html>`))
)

type confirmationData struct {
	Name          string
	ReferenceCode string
	BloodType     string
}

type reminderData struct {
	Name             string
	LastDonationDate string
	ReferenceCode    string
	BloodType        string
}

// RenderConfirmation produces the registration confirmation body.
func RenderConfirmation(name, referenceCode, bloodType string) (string, error) {
	return render(confirmationTmpl, confirmationData{
		Name:          name,
		ReferenceCode: referenceCode,
		BloodType:     bloodType,
	})
}

// RenderReminder produces the 90-day donation reminder body.
func RenderReminder(name string, lastDonation time.Time, referenceCode, bloodType string) (string, error) {
	return render(reminderTmpl, reminderData{
		Name:             name,
		LastDonationDate: lastDonation.Format("January 2, 2006"),
		ReferenceCode:    referenceCode,
		BloodType:        bloodType,
	})
}

// RenderApproval produces the application-approved notification body.
func RenderApproval(name, referenceCode string) (string, error) {
	return render(approvalTmpl, struct {
		Name          string
		ReferenceCode string
	}{Name: name, ReferenceCode: referenceCode})
}

// RenderPasswordReset produces the password reset body.
func RenderPasswordReset(token string) (string, error) {
	return render(passwordResetTmpl, struct{ Token string }{Token: token})
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return buf.String(), nil
}
