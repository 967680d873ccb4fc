package email

import (
	"bytes"
	"embed"
	"fmt"
	"net/smtp"
	"text/template"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Template names.
const (
	TemplateVerifyEmail   = "verify_email.txt"
	TemplateGoalCompleted = "goal_completed.txt"
	TemplateGoalDueSoon   = "goal_due_soon.txt"
)

//go:embed templates/*.txt
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.txt"))

// Render executes the named template with data.
func Render(name string, data any) (string, error) {
	var b bytes.Buffer
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return b.String(), nil
}

// FormatMoney renders amount in the currency's display format, e.g. "$1,250.00".
// Unknown currencies fall back to the plain amount followed by the code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), currency).Display()
}

// SMTPSender sends plain text email through an SMTP relay.
type SMTPSender struct {
	Host     string
	Port     string
	From     string
	Password string
}

// SendEmail sends a plain text email using SMTP.
func (s *SMTPSender) SendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.From, s.Password, s.Host)

	msg := []byte("To: " + to + "\r\n" +
		"From: " + s.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body + "\r\n")

	if err := smtp.SendMail(s.Host+":"+s.Port, auth, s.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogSender only logs outgoing mail. It stands in when SMTP is not configured.
type LogSender struct{}

func (LogSender) SendEmail(to, subject, body string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Email delivery disabled, message logged only")
	return nil
}
