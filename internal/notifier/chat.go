package notifier

import (
	"context"
	"fmt"
	"io"
	"log"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"content-moderation-go/internal/config"
	"content-moderation-go/internal/model"
)

// ChatNotifier sends alerts to chat services through shoutrrr. One sender
// covers all configured URLs, so a single chat channel can reach Slack,
// Discord and the rest at once.
type ChatNotifier struct {
	sender *router.ServiceRouter
}

// NewChatNotifier creates the sender and validates the configured URLs
func NewChatNotifier(cfg config.ChatChannelConfig) (*ChatNotifier, error) {
	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("at least one chat URL is required")
	}

	sender, err := shoutrrr.CreateSender(cfg.URLs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat sender: %w", err)
	}
	if cfg.Timeout > 0 {
		sender.Timeout = cfg.Timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &ChatNotifier{sender: sender}, nil
}

// Channel identifies this notifier as the chat channel
func (n *ChatNotifier) Channel() model.NotificationChannel {
	return model.ChannelChat
}

// Send posts the alert to every configured chat URL
func (n *ChatNotifier) Send(ctx context.Context, req *model.ModerationRequest, res *model.ModerationResult) error {
	_ = ctx // the router enforces its own timeout

	params := stypes.Params{}
	params.SetTitle(alertTitle(res))

	errs := n.sender.Send(alertBody(req, res), &params)
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("failed to send chat alert for request %d: %w", req.ID, err)
		}
	}
	return nil
}
