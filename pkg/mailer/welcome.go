package mailer

import (
	"fmt"
	"html"
)

// WelcomeSubject is the subject line for merchant credential emails
const WelcomeSubject = "Welcome to Amini Market: your seller account is ready"

// BuildWelcomeEmail renders the credential email body for a new merchant.
// It carries the one-time credentials and the account-setup link.
func BuildWelcomeEmail(businessName, email, tempPassword, setupURL, loginURL string) string {
	name := html.EscapeString(businessName)

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
  <h2>Welcome aboard, %s!</h2>
  <p>Your seller account on Amini Market has been created. Use the temporary
  credentials below to finish setting up your account.</p>
  <table style="border-collapse: collapse; margin: 16px 0;">
    <tr>
      <td style="padding: 6px 12px; font-weight: bold;">Email</td>
      <td style="padding: 6px 12px;">%s</td>
    </tr>
    <tr>
      <td style="padding: 6px 12px; font-weight: bold;">Temporary password</td>
      <td style="padding: 6px 12px;"><code>%s</code></td>
    </tr>
  </table>
  <p>
    <a href="%s" style="display: inline-block; padding: 10px 20px; background: #0a7d36; color: #fff; text-decoration: none; border-radius: 4px;">
      Complete account setup
    </a>
  </p>
  <p>The setup link is valid for 14 days and can be used once. After setup,
  sign in at <a href="%s">the seller portal</a> and upload your verification
  documents (business registration, ID document and a recent utility bill).</p>
  <p style="color: #777; font-size: 12px;">If you did not expect this email,
  you can safely ignore it.</p>
</body>
</html>`,
		name,
		html.EscapeString(email),
		html.EscapeString(tempPassword),
		setupURL,
		loginURL,
	)
}
