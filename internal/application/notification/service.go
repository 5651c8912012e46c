package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
)

// Sender delivers one email. Implemented by the SMTP mailer, the SNS
// publisher and LogSender.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

type Service interface {
	SendRegistrationConfirmation(ctx context.Context, email, link string) error
}

const confirmSubject = "Dr Checkoff: Confirm your account registration"

var confirmTmpl = template.Must(template.New("confirm").Parse(`<p>Please click on the following link to confirm your registration:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>Your account will be inactive until it is confirmed.</p>
<p>If your link has expired, please register again.<br>
If you did not intend to sign up, then it is safe to simply ignore this message.</p>
`))

type service struct {
	sender Sender
}

func NewService(sender Sender) Service {
	return &service{sender: sender}
}

func (s *service) SendRegistrationConfirmation(ctx context.Context, email, link string) error {
	var buf bytes.Buffer
	if err := confirmTmpl.Execute(&buf, struct{ Link string }{link}); err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}
	if err := s.sender.SendEmail(ctx, email, confirmSubject, buf.String()); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}

// LogSender writes emails to the log instead of delivering them. Local development only.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	l.logger.InfoContext(ctx, "email not delivered (log transport)", "to", to, "subject", subject, "body", htmlBody)
	return nil
}
