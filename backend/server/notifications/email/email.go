package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// smtpServer stores the host:port address of the SMTP server used to send emails.
var smtpServer string

// auth holds the authentication data needed to connect to the SMTP server.
var auth smtp.Auth

// fromEmail is the "From" address on every email the service sends.
var fromEmail string

// Init initializes the email service by establishing an SMTP connection to the
// given server. host is the SMTP host without port; sender and password are the
// credentials of the sending account. It dials once to verify the connection
// and returns an error when the server is unreachable.
func Init(host string, port int, sender, password string) error {
	smtpServer = fmt.Sprintf("%s:%d", host, port)
	fromEmail = sender
	auth = smtp.PlainAuth("", sender, password, host)

	c, err := smtp.Dial(smtpServer)
	if err != nil {
		return fmt.Errorf("cannot connect to the SMTP server: %w", err)
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("cannot close the SMTP connection: %w", err)
	}
	return nil
}

// SendConfirmation sends the email-confirmation token to a new user.
func SendConfirmation(to, token string) error {
	return send(to, "Your Save Point confirmation token", ConfirmationBody(token))
}

// SendStreakWarning warns a user that their check-in streak lapses at midnight.
func SendStreakWarning(to, username string, streak int) error {
	return send(to, "Your streak is about to reset", StreakWarningBody(username, streak))
}

// SendHabitReminder nudges a user about a habit they have not completed today.
func SendHabitReminder(to, username, habitTitle string) error {
	return send(to, "Don't break the chain", HabitReminderBody(username, habitTitle))
}

// ConfirmationBody builds the HTML body of the confirmation email.
func ConfirmationBody(token string) string {
	return wrap(fmt.Sprintf(`
		<h1>Welcome to Save Point!</h1>
		<p>Here is your confirmation token: <strong>%s</strong></p>
		<p>Run the <code>confirm</code> command and enter the token above, mind the case sensitivity.</p>`, token))
}

// StreakWarningBody builds the HTML body of the streak warning email.
func StreakWarningBody(username string, streak int) string {
	return wrap(fmt.Sprintf(`
		<h1>Hey %s,</h1>
		<p>Your <strong>%d-day</strong> streak resets at midnight.</p>
		<p>Complete any habit today to keep it alive.</p>`, username, streak))
}

// HabitReminderBody builds the HTML body of the habit reminder email.
func HabitReminderBody(username, habitTitle string) string {
	return wrap(fmt.Sprintf(`
		<h1>Hey %s,</h1>
		<p>You haven't checked off <strong>%s</strong> yet today.</p>
		<p>A couple of minutes now keeps the streak going.</p>`, username, habitTitle))
}

func wrap(content string) string {
	return `
	<html>
		<head>
			<style>
				body {
					font-family: 'Lato', sans-serif;
					margin: 0;
					padding: 0;
				}
				.container {
					max-width: 600px;
					margin: 0 auto;
					padding: 10px;
					border-radius: 4px;
				}
				p {
					line-height: 1.6;
				}
				code {
					padding: 2px 4px;
					border-radius: 3px;
					font-family: monospace;
				}
			</style>
		</head>
		<body>
			<div class="container">` + content + `
			</div>
		</body>
	</html>
	`
}

func send(to, subject, body string) error {
	headers := map[string]string{
		"From":         fromEmail,
		"To":           to,
		"Subject":      subject,
		"MIME-version": "1.0",
		"Content-Type": `text/html; charset="UTF-8"`,
	}

	var message strings.Builder
	for k, v := range headers {
		fmt.Fprintf(&message, "%s: %s\r\n", k, v)
	}
	message.WriteString("\r\n" + body)

	err := smtp.SendMail(
		smtpServer,
		auth,
		fromEmail,
		[]string{to},
		[]byte(message.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
