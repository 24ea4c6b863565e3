package notifier

import (
	"fmt"
	"html"
	"strings"

	"content-moderation-go/internal/model"
)

// alertTitle builds the headline shared by all channels
func alertTitle(res *model.ModerationResult) string {
	return fmt.Sprintf("Content Moderation Alert - %s", strings.ToUpper(string(res.Classification)))
}

// alertBody builds the plain-text alert used by chat channels
func alertBody(req *model.ModerationRequest, res *model.ModerationResult) string {
	reasoning := res.Reasoning
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Submitter: %s\n", req.Submitter)
	fmt.Fprintf(&b, "Content Type: %s\n", req.ContentKind)
	fmt.Fprintf(&b, "Classification: %s\n", strings.ToUpper(string(res.Classification)))
	fmt.Fprintf(&b, "Confidence: %.2f\n", res.Confidence)
	fmt.Fprintf(&b, "Reasoning: %s\n", reasoning)
	fmt.Fprintf(&b, "Request ID: %d", req.ID)
	return b.String()
}

// alertHTML builds the HTML alert used by the email channel. Submitter and
// reasoning are untrusted input and get escaped.
func alertHTML(req *model.ModerationRequest, res *model.ModerationResult) string {
	reasoning := res.Reasoning
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}

	var b strings.Builder
	b.WriteString("<html>\r\n<body>\r\n")
	b.WriteString("<h2>Content Moderation Alert</h2>\r\n")
	fmt.Fprintf(&b, "<p><strong>Classification:</strong> %s</p>\r\n", strings.ToUpper(string(res.Classification)))
	fmt.Fprintf(&b, "<p><strong>Submitter:</strong> %s</p>\r\n", html.EscapeString(req.Submitter))
	fmt.Fprintf(&b, "<p><strong>Content Type:</strong> %s</p>\r\n", req.ContentKind)
	fmt.Fprintf(&b, "<p><strong>Confidence:</strong> %.2f</p>\r\n", res.Confidence)
	fmt.Fprintf(&b, "<p><strong>Reasoning:</strong> %s</p>\r\n", html.EscapeString(reasoning))
	fmt.Fprintf(&b, "<p><strong>Request ID:</strong> %d</p>\r\n", req.ID)
	fmt.Fprintf(&b, "<p><strong>Timestamp:</strong> %s</p>\r\n", req.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	b.WriteString("<hr>\r\n")
	b.WriteString("<p><em>This is an automated alert from the Content Moderation Service.</em></p>\r\n")
	b.WriteString("</body>\r\n</html>\r\n")
	return b.String()
}
