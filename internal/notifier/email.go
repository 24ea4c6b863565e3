package notifier

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"content-moderation-go/internal/config"
	"content-moderation-go/internal/model"
)

// EmailNotifier sends alert emails via the Gmail API. Alerts go to the
// submitter; an optional moderator address from the configuration receives
// a copy. Retries are left to the task runner, so a failed send returns
// immediately.
type EmailNotifier struct {
	service *gmail.Service
	from    string
	copyTo  string
}

// NewEmailNotifier creates a Gmail-backed email notifier
func NewEmailNotifier(cfg config.EmailChannelConfig) (*EmailNotifier, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &EmailNotifier{
		service: service,
		from:    cfg.From,
		copyTo:  cfg.To,
	}, nil
}

// Channel identifies this notifier as the email channel
func (n *EmailNotifier) Channel() model.NotificationChannel {
	return model.ChannelEmail
}

// Send delivers the alert email for a flagged request
func (n *EmailNotifier) Send(ctx context.Context, req *model.ModerationRequest, res *model.ModerationResult) error {
	raw := n.buildAlertEmail(req, res)
	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}

	_, err := n.service.Users.Messages.Send(n.from, message).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send alert email for request %d: %w", req.ID, err)
	}
	return nil
}

// buildAlertEmail assembles the raw RFC 822 message
func (n *EmailNotifier) buildAlertEmail(req *model.ModerationRequest, res *model.ModerationResult) string {
	recipients := []string{req.Submitter}
	if n.copyTo != "" && n.copyTo != req.Submitter {
		recipients = append(recipients, n.copyTo)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", n.from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(recipients, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", alertTitle(res)))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(alertHTML(req, res))
	return b.String()
}
