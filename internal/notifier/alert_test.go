package notifier

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"content-moderation-go/internal/model"
)

func alertFixtures() (*model.ModerationRequest, *model.ModerationResult) {
	req := &model.ModerationRequest{
		ID:          42,
		Submitter:   "alice@example.com",
		ContentKind: model.ContentKindText,
		Status:      model.StatusCompleted,
		CreatedAt:   time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}
	res := &model.ModerationResult{
		RequestID:      42,
		Classification: model.ClassificationToxic,
		Confidence:     0.92,
		Reasoning:      "hostile language",
	}
	return req, res
}

func TestAlertTitleUppercasesClassification(t *testing.T) {
	_, res := alertFixtures()
	assert.Equal(t, "Content Moderation Alert - TOXIC", alertTitle(res))
}

func TestAlertBodyContents(t *testing.T) {
	req, res := alertFixtures()
	body := alertBody(req, res)

	assert.Contains(t, body, "Submitter: alice@example.com")
	assert.Contains(t, body, "Content Type: text")
	assert.Contains(t, body, "Classification: TOXIC")
	assert.Contains(t, body, "Confidence: 0.92")
	assert.Contains(t, body, "Reasoning: hostile language")
	assert.Contains(t, body, "Request ID: 42")
}

func TestAlertBodyDefaultsMissingReasoning(t *testing.T) {
	req, res := alertFixtures()
	res.Reasoning = ""

	assert.Contains(t, alertBody(req, res), "Reasoning: No reasoning provided")
}

func TestAlertHTMLEscapesUntrustedFields(t *testing.T) {
	req, res := alertFixtures()
	req.Submitter = `"mallory"<script>@example.com`
	res.Reasoning = "<b>contains markup</b>"

	page := alertHTML(req, res)

	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "&lt;script&gt;")
	assert.NotContains(t, page, "<b>contains markup</b>")
	assert.Contains(t, page, "&lt;b&gt;contains markup&lt;/b&gt;")
	assert.Contains(t, page, "Request ID:</strong> 42")
	assert.Contains(t, page, "2024-03-01 12:30:00 UTC")
}

func TestBuildAlertEmailAddressesSubmitter(t *testing.T) {
	req, res := alertFixtures()
	n := &EmailNotifier{from: "moderation@example.com"}

	raw := n.buildAlertEmail(req, res)

	assert.Contains(t, raw, "From: moderation@example.com\r\n")
	assert.Contains(t, raw, "To: alice@example.com\r\n")
	assert.Contains(t, raw, "Subject: Content Moderation Alert - TOXIC\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n")

	headers, body, found := strings.Cut(raw, "\r\n\r\n")
	assert.True(t, found, "headers and body must be separated by a blank line")
	assert.NotContains(t, headers, "<html>")
	assert.Contains(t, body, "<html>")
}

func TestBuildAlertEmailCopiesModerator(t *testing.T) {
	req, res := alertFixtures()
	n := &EmailNotifier{from: "moderation@example.com", copyTo: "mods@example.com"}

	raw := n.buildAlertEmail(req, res)
	assert.Contains(t, raw, "To: alice@example.com, mods@example.com\r\n")
}

func TestBuildAlertEmailSkipsDuplicateCopy(t *testing.T) {
	req, res := alertFixtures()
	n := &EmailNotifier{from: "moderation@example.com", copyTo: req.Submitter}

	raw := n.buildAlertEmail(req, res)
	headers, _, _ := strings.Cut(raw, "\r\n\r\n")
	assert.Contains(t, headers, "To: alice@example.com\r\n")
	assert.Equal(t, 1, strings.Count(headers, "alice@example.com"))
}
