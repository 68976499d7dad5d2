package mailer

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestEncodeMessagePlainOnly(t *testing.T) {
	msg := Message{
		To:       []string{"a@example.com", "b@example.com"},
		Subject:  "每日內容",
		TextBody: "正文",
	}
	out := string(encodeMessage("manna@example.com", msg))

	if !strings.Contains(out, "From: manna@example.com\r\n") {
		t.Error("From header missing")
	}
	if !strings.Contains(out, "To: a@example.com, b@example.com\r\n") {
		t.Error("To header missing or unjoined")
	}
	// Non-ASCII subjects are Q-encoded.
	if !strings.Contains(out, "Subject: =?utf-8?q?") {
		t.Errorf("subject not encoded:\n%s", out)
	}
	if !strings.Contains(out, "Content-Type: text/plain; charset=utf-8\r\n") {
		t.Error("plain content type missing")
	}
	if strings.Contains(out, "multipart/alternative") {
		t.Error("plain-only message became multipart")
	}
	if !strings.Contains(out, base64.StdEncoding.EncodeToString([]byte("正文"))) {
		t.Error("body not base64 encoded")
	}
}

func TestEncodeMessageMultipart(t *testing.T) {
	msg := Message{
		To:       []string{"a@example.com"},
		Subject:  "weekly",
		TextBody: "plain body",
		HTMLBody: "<p>html body</p>",
	}
	out := string(encodeMessage("manna@example.com", msg))

	if !strings.Contains(out, `multipart/alternative; boundary="manna-alt-boundary"`) {
		t.Errorf("multipart header missing:\n%s", out)
	}
	plainPart := strings.Index(out, "Content-Type: text/plain")
	htmlPart := strings.Index(out, "Content-Type: text/html")
	if plainPart < 0 || htmlPart < 0 {
		t.Fatal("missing body parts")
	}
	// Plain part first so text-only clients show something readable.
	if plainPart > htmlPart {
		t.Error("plain part not before HTML part")
	}
	if !strings.Contains(out, "--manna-alt-boundary--\r\n") {
		t.Error("closing boundary missing")
	}
}

func TestWriteBase64WrapsLines(t *testing.T) {
	msg := Message{
		To:       []string{"a@example.com"},
		Subject:  "long",
		TextBody: strings.Repeat("晨興聖言每日內容", 50),
	}
	out := string(encodeMessage("manna@example.com", msg))

	body := out[strings.Index(out, "\r\n\r\n")+4:]
	for _, line := range strings.Split(strings.TrimRight(body, "\r\n"), "\r\n") {
		if len(line) > 76 {
			t.Fatalf("encoded line exceeds 76 columns: %d", len(line))
		}
	}
}
