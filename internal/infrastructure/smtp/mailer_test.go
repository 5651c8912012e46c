package smtp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/checkoff-auth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage_Headers(t *testing.T) {
	msg := string(buildMessage("noreply@x.com", "a@x.com", "Confirm", "<p>hi</p>"))

	head, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, head, "From: noreply@x.com")
	assert.Contains(t, head, "To: a@x.com")
	assert.Contains(t, head, "Subject: Confirm")
	assert.Contains(t, head, "Content-Type: text/html")
	assert.Equal(t, "<p>hi</p>", body)
}

func TestSendEmail_DialHonoursContext(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "127.0.0.1", SMTPPort: "1"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	err := m.SendEmail(ctx, "a@x.com", "s", "b")
	assert.ErrorContains(t, err, "dial smtp")
}
