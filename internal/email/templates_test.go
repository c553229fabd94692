package email

import (
	"context"
	"strings"
	"testing"
)

func TestRenderAlertEscapesContent(t *testing.T) {
	html, err := RenderAlert(AlertData{
		Label:     "🔴 Podio Sync Falhou",
		Timestamp: "16/10/2026 10:00:00",
		Message:   "<script>x</script>",
		Details:   `{"lead_id": "abc"}`,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "Podio Sync Falhou") {
		t.Errorf("expected label in body")
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("expected message to be escaped")
	}
	if !strings.Contains(html, "<pre") {
		t.Errorf("expected details block")
	}

	plain, err := RenderAlert(AlertData{Label: "x", Message: "y"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(plain, "<pre") {
		t.Errorf("expected no details block without details")
	}
}

func TestNewSMTPSenderRequiresCredentials(t *testing.T) {
	if NewSMTPSender("smtp.gmail.com", 587, "", "pass") != nil {
		t.Errorf("expected nil sender without user")
	}
	var s *SMTPSender
	if err := s.Send(context.Background(), "a@b.c", "s", "b"); err != nil {
		t.Errorf("nil sender should be a no-op, got %v", err)
	}
}
