package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDispatcher_SendOTP(t *testing.T) {
	sender := NewMemorySender()
	d := NewDispatcher(sender, "noreply@baronda.id", "Baronda")

	if err := d.SendOTP(context.Background(), "warga@example.com", "482913", "user_registration", 10*time.Minute); err != nil {
		t.Fatalf("SendOTP returned error: %v", err)
	}

	if n := len(sender.Sent()); n != 1 {
		t.Fatalf("expected exactly one mail, got %d", n)
	}
	msg, ok := sender.Last()
	if !ok {
		t.Fatal("expected mail to be sent")
	}
	if msg.To != "warga@example.com" || msg.From != "noreply@baronda.id" {
		t.Fatalf("unexpected addresses: from=%s to=%s", msg.From, msg.To)
	}
	if !strings.Contains(msg.HTML, "482913") {
		t.Fatal("expected code in body")
	}
	if !strings.Contains(msg.HTML, "User Registration") {
		t.Fatalf("expected title-cased purpose in body, got %q", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "10 menit") {
		t.Fatal("expected ttl in body")
	}
}

func TestDispatcher_SendAccessCodeEscapesName(t *testing.T) {
	sender := NewMemorySender()
	d := NewDispatcher(sender, "noreply@baronda.id", "Baronda")

	if err := d.SendAccessCode(context.Background(), "petugas@example.com", "<b>Budi</b>", "kode-rahasia", true); err != nil {
		t.Fatalf("SendAccessCode returned error: %v", err)
	}

	msg, _ := sender.Last()
	if strings.Contains(msg.HTML, "<b>Budi</b>") {
		t.Fatal("expected name to be escaped")
	}
	if !strings.Contains(msg.Subject, "disetujui") {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
}

func TestDispatcher_SendRawDefaultsFrom(t *testing.T) {
	sender := NewMemorySender()
	d := NewDispatcher(sender, "noreply@baronda.id", "Baronda")

	if err := d.SendRaw(context.Background(), "", "a@example.com", "Halo", "<p>hi</p>"); err != nil {
		t.Fatalf("SendRaw returned error: %v", err)
	}
	msg, _ := sender.Last()
	if msg.From != "noreply@baronda.id" {
		t.Fatalf("expected default from, got %s", msg.From)
	}
}

func TestDispatcher_PropagatesSenderError(t *testing.T) {
	sender := NewMemorySender()
	sender.Err = errors.New("smtp down")
	d := NewDispatcher(sender, "noreply@baronda.id", "Baronda")

	if err := d.SendRejection(context.Background(), "a@example.com", "Budi", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseAddress(t *testing.T) {
	ok := map[string]Address{
		"budi@example.com":   "budi@example.com",
		" Budi@Example.com ": "budi@example.com",
	}
	for raw, want := range ok {
		got, err := ParseAddress(raw)
		if err != nil {
			t.Fatalf("ParseAddress(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseAddress(%q) = %q, want %q", raw, got, want)
		}
	}

	for _, raw := range []string{"", "budi", "budi@", "Budi <budi@example.com>"} {
		if _, err := ParseAddress(raw); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("ParseAddress(%q): expected ErrInvalidAddress, got %v", raw, err)
		}
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("a@example.com", "b@example.com", "Kode verifikasi", "<p>x</p>"))
	if !strings.Contains(msg, "Content-Type: text/html; charset=\"utf-8\"\r\n") {
		t.Fatal("expected html content type")
	}
	if !strings.HasSuffix(msg, "\r\n\r\n<p>x</p>") {
		t.Fatal("expected body after blank line")
	}
}
