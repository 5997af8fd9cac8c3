package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildWelcomeEmail(t *testing.T) {
	body := BuildWelcomeEmail(
		"Mama Zawadi Groceries",
		"owner@example.com",
		"Temp-Pass-123!",
		"https://shop.example.com/merchant/account-setup/abc123",
		"https://shop.example.com/auth?merchant=true",
	)

	assert.Contains(t, body, "Mama Zawadi Groceries")
	assert.Contains(t, body, "owner@example.com")
	assert.Contains(t, body, "Temp-Pass-123!")
	assert.Contains(t, body, `href="https://shop.example.com/merchant/account-setup/abc123"`)
	assert.Contains(t, body, `href="https://shop.example.com/auth?merchant=true"`)
}

func TestBuildWelcomeEmail_EscapesHTML(t *testing.T) {
	body := BuildWelcomeEmail(
		`Shop <script>alert(1)</script>`,
		"owner@example.com",
		`pass<w0rd>`,
		"https://shop.example.com/s",
		"https://shop.example.com/l",
	)

	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "pass<w0rd>")
}
