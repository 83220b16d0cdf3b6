package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	OTPSubject   = "Your OTP for Verification"
	ResetSubject = "ResetPassword Token"
)

var (
	otpTemplate = template.Must(template.New("otp").Parse(
		`<p style="color:black; font-size:25px;letter-spacing:2px;">Your OTP for verification is: <b>{{.OTP}}</b></p>` +
			`{{if .OTPRef}}<p style="color:black; font-size:25px;letter-spacing:2px;">Your OTP Reference for verification is: <b>{{.OTPRef}}</b></p>{{end}}`))

	resetTemplate = template.Must(template.New("reset").Parse(
		`<p style="color:black; font-size:25px;letter-spacing:2px;">ResetPassword Token is: <b>{{.Token}}</b></p>`))
)

// OTPMessage renders the verification email. The reference is included on
// first issuance and omitted on resend.
func OTPMessage(otp int, otpRef string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		OTP    string
		OTPRef string
	}{OTP: fmt.Sprintf("%06d", otp), OTPRef: otpRef}

	if err := otpTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render otp message: %w", err)
	}
	return buf.String(), nil
}

// ResetMessage renders the password reset email
func ResetMessage(token string) (string, error) {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, struct{ Token string }{Token: token}); err != nil {
		return "", fmt.Errorf("failed to render reset message: %w", err)
	}
	return buf.String(), nil
}
