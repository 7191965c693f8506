package services

import (
	"strings"
	"testing"

	"github.com/P3chys/ustam-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmailService() *EmailService {
	return NewEmailService(&config.Config{
		SMTPHost:      "localhost",
		SMTPPort:      "1025",
		SMTPFromEmail: "noreply@ustam.test",
		SMTPFromName:  "Ustam",
		AppURL:        "https://ustam.test",
	})
}

func TestRenderTemplate_NewReviewTurkish(t *testing.T) {
	s := newTestEmailService()

	body, err := s.renderTemplate("new_review", "tr", NotificationData{
		BusinessName: "Yılmaz Tesisat",
		CustomerName: "Ayşe",
		QuoteTitle:   "Musluk tamiri",
		Rating:       5,
		Comment:      "Çok hızlı ve temiz iş",
		Link:         s.Link("/craftsmen/%s", "abc"),
	})

	require.NoError(t, err)
	assert.Contains(t, body, "Merhaba Yılmaz Tesisat")
	assert.Contains(t, body, "5 yıldız")
	assert.Contains(t, body, "<blockquote>Çok hızlı ve temiz iş</blockquote>")
	assert.Contains(t, body, `href="https://ustam.test/craftsmen/abc"`)
}

func TestRenderTemplate_EscapesUserContent(t *testing.T) {
	s := newTestEmailService()

	body, err := s.renderTemplate("new_review", "en", NotificationData{
		BusinessName: "Usta",
		Rating:       1,
		Comment:      "<script>alert(1)</script>",
	})

	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRenderTemplate_UnknownLanguageFallsBackToTurkish(t *testing.T) {
	s := newTestEmailService()

	body, err := s.renderTemplate("quote_status", "de", NotificationData{CustomerName: "Mehmet", QuoteTitle: "Boya", Status: "accepted"})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(body), "<p>Merhaba Mehmet"))
}

func TestRenderTemplate_UnknownTemplate(t *testing.T) {
	s := newTestEmailService()

	_, err := s.renderTemplate("missing", "en", NotificationData{})
	assert.Error(t, err)
}

func TestBuildMessage(t *testing.T) {
	s := newTestEmailService()

	msg := string(s.buildMessage("usta@example.com", "Konu", "<p>x</p>"))

	assert.Contains(t, msg, "From: Ustam <noreply@ustam.test>\r\n")
	assert.Contains(t, msg, "To: usta@example.com\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>x</p>")
}
