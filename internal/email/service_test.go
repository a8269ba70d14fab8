package email

import (
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderVerificationTemplate(t *testing.T) {
	data := VerificationData{
		AppName:         "Snippets",
		UserName:        "Test User",
		VerificationURL: "https://example.com/verify?token=abc123",
	}

	html, err := renderTemplate(verificationEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Snippets") {
		t.Error("template should contain app name")
	}
	if !strings.Contains(html, "Test User") {
		t.Error("template should contain user name")
	}
	if !strings.Contains(html, "https://example.com/verify?token=abc123") {
		t.Error("template should contain verification URL")
	}
}

func TestRenderPasswordResetTemplate(t *testing.T) {
	data := PasswordResetData{
		AppName:  "Snippets",
		UserName: "Test User",
		ResetURL: "https://example.com/reset?token=xyz789",
	}

	html, err := renderTemplate(passwordResetEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Snippets") {
		t.Error("template should contain app name")
	}
	if !strings.Contains(html, "Test User") {
		t.Error("template should contain user name")
	}
	if !strings.Contains(html, "https://example.com/reset?token=xyz789") {
		t.Error("template should contain reset URL")
	}
	if !strings.Contains(html, "1 hour") {
		t.Error("template should mention expiration time")
	}
}

func TestRenderReminderTemplate(t *testing.T) {
	body, err := renderTextTemplate(reminderEmailTemplate, ReminderData{
		SubmitURL:   "https://snippets.example.com/",
		SettingsURL: "https://snippets.example.com/settings",
	})
	if err != nil {
		t.Fatalf("renderTextTemplate failed: %v", err)
	}

	if !strings.Contains(body, "due at 5pm today") {
		t.Error("reminder should mention the deadline")
	}
	if !strings.Contains(body, "https://snippets.example.com/settings") {
		t.Error("reminder should link to settings for opting out")
	}
}

func TestRenderDigestNoticeTemplate(t *testing.T) {
	t.Run("user with snippet", func(t *testing.T) {
		body, err := renderTextTemplate(digestNoticeEmailTemplate, DigestNoticeData{
			DigestURL:   "https://snippets.example.com/weekly",
			SubmitURL:   "https://snippets.example.com/",
			SettingsURL: "https://snippets.example.com/settings",
			HasSnippet:  true,
		})
		if err != nil {
			t.Fatalf("renderTextTemplate failed: %v", err)
		}
		if !strings.Contains(body, "https://snippets.example.com/weekly") {
			t.Error("notice should link to the digest")
		}
		if strings.Contains(body, "not too late") {
			t.Error("notice should not nag users who already posted")
		}
	})

	t.Run("user without snippet", func(t *testing.T) {
		body, err := renderTextTemplate(digestNoticeEmailTemplate, DigestNoticeData{
			DigestURL:   "https://snippets.example.com/weekly",
			SubmitURL:   "https://snippets.example.com/",
			SettingsURL: "https://snippets.example.com/settings",
			HasSnippet:  false,
		})
		if err != nil {
			t.Fatalf("renderTextTemplate failed: %v", err)
		}
		if !strings.Contains(body, "not too late") {
			t.Error("notice should invite late submissions")
		}
	})
}
