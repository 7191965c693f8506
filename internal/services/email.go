package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/P3chys/ustam-api/internal/config"
)

type EmailService struct {
	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string
	appURL       string
	templates    *template.Template
}

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "new_review_tr"}}<p>Merhaba {{.BusinessName}},</p>
<p>{{.CustomerName}} "{{.QuoteTitle}}" işi için size {{.Rating}} yıldız verdi.</p>
{{if .Comment}}<blockquote>{{.Comment}}</blockquote>{{end}}
<p><a href="{{.Link}}">Değerlendirmeyi görüntüle</a></p>{{end}}
{{define "new_review_en"}}<p>Hello {{.BusinessName}},</p>
<p>{{.CustomerName}} rated you {{.Rating}} stars for "{{.QuoteTitle}}".</p>
{{if .Comment}}<blockquote>{{.Comment}}</blockquote>{{end}}
<p><a href="{{.Link}}">View the review</a></p>{{end}}
{{define "new_quote_tr"}}<p>Merhaba {{.BusinessName}},</p>
<p>{{.CustomerName}} sizden "{{.QuoteTitle}}" için teklif istedi ({{.City}}).</p>
<p><a href="{{.Link}}">Teklifi görüntüle</a></p>{{end}}
{{define "new_quote_en"}}<p>Hello {{.BusinessName}},</p>
<p>{{.CustomerName}} requested a quote for "{{.QuoteTitle}}" ({{.City}}).</p>
<p><a href="{{.Link}}">View the quote</a></p>{{end}}
{{define "quote_status_tr"}}<p>Merhaba {{.CustomerName}},</p>
<p>"{{.QuoteTitle}}" teklifinizin durumu güncellendi: <strong>{{.Status}}</strong>.</p>
<p><a href="{{.Link}}">Teklifi görüntüle</a></p>{{end}}
{{define "quote_status_en"}}<p>Hello {{.CustomerName}},</p>
<p>The status of your quote "{{.QuoteTitle}}" is now <strong>{{.Status}}</strong>.</p>
<p><a href="{{.Link}}">View the quote</a></p>{{end}}
`))

// NotificationData fills the e-mail templates. Unused fields are ignored by
// templates that do not reference them.
type NotificationData struct {
	BusinessName string
	CustomerName string
	QuoteTitle   string
	City         string
	Status       string
	Rating       int
	Comment      string
	Link         string
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUsername: cfg.SMTPUsername,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    cfg.SMTPFromEmail,
		fromName:     cfg.SMTPFromName,
		appURL:       cfg.AppURL,
		templates:    emailTemplates,
	}
}

// SendEmail sends an HTML email over SMTP, with STARTTLS when credentials
// are configured.
func (s *EmailService) SendEmail(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	msg := s.buildMessage(to, subject, body)

	// Local mail catchers run without auth
	if s.smtpUsername == "" && s.smtpPassword == "" {
		conn, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		defer conn.Close()

		if ok, _ := conn.Extension("STARTTLS"); ok {
			if err := conn.StartTLS(s.tlsConfig()); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
		if err := conn.Mail(s.fromEmail); err != nil {
			return fmt.Errorf("failed to set sender: %w", err)
		}
		if err := conn.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}

		w, err := conn.Data()
		if err != nil {
			return fmt.Errorf("failed to get data writer: %w", err)
		}
		if _, err := w.Write(msg); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to close data writer: %w", err)
		}

		return conn.Quit()
	}

	auth := smtp.PlainAuth("", s.smtpUsername, s.smtpPassword, s.smtpHost)
	if err := smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// SendNewReviewEmail tells a craftsman about a review left on one of their jobs.
func (s *EmailService) SendNewReviewEmail(to, language string, data NotificationData) error {
	subject := "You have a new review - Ustam"
	if language == "tr" {
		subject = "Yeni bir değerlendirmeniz var - Ustam"
	}
	return s.send(to, subject, "new_review", language, data)
}

// SendNewQuoteEmail tells a craftsman a customer has requested a quote.
func (s *EmailService) SendNewQuoteEmail(to, language string, data NotificationData) error {
	subject := "New quote request - Ustam"
	if language == "tr" {
		subject = "Yeni teklif talebi - Ustam"
	}
	return s.send(to, subject, "new_quote", language, data)
}

// SendQuoteStatusEmail tells a customer their quote changed status.
func (s *EmailService) SendQuoteStatusEmail(to, language string, data NotificationData) error {
	subject := "Your quote was updated - Ustam"
	if language == "tr" {
		subject = "Teklifiniz güncellendi - Ustam"
	}
	return s.send(to, subject, "quote_status", language, data)
}

// Link builds an absolute link into the web app.
func (s *EmailService) Link(format string, args ...interface{}) string {
	return s.appURL + fmt.Sprintf(format, args...)
}

func (s *EmailService) send(to, subject, name, language string, data NotificationData) error {
	body, err := s.renderTemplate(name, language, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return s.SendEmail(to, subject, body)
}

// renderTemplate renders the language variant of a template, falling back to
// Turkish.
func (s *EmailService) renderTemplate(name, language string, data NotificationData) (string, error) {
	if language != "en" {
		language = "tr"
	}
	templateName := name + "_" + language

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func (s *EmailService) buildMessage(to, subject, body string) []byte {
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	return []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n", from, to, subject, body))
}

func (s *EmailService) tlsConfig() *tls.Config {
	// Development mail servers use self-signed certificates
	if s.smtpHost == "localhost" || s.smtpHost == "127.0.0.1" {
		return &tls.Config{InsecureSkipVerify: true, ServerName: s.smtpHost}
	}
	return &tls.Config{ServerName: s.smtpHost}
}
