package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentKindValid(t *testing.T) {
	assert.True(t, ContentKindText.Valid())
	assert.True(t, ContentKindImage.Valid())
	assert.False(t, ContentKind("video").Valid())
	assert.False(t, ContentKind("").Valid())
}

func TestRequestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestRequestStatusKnown(t *testing.T) {
	for _, s := range []RequestStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
		assert.True(t, s.Known(), "status %s", s)
	}
	assert.False(t, RequestStatus("archived").Known())
	assert.False(t, RequestStatus("").Known())
}

func TestCanTransitionCoversFullTable(t *testing.T) {
	all := []RequestStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

	allowed := map[[2]RequestStatus]bool{
		{StatusPending, StatusProcessing}:   true,
		{StatusProcessing, StatusCompleted}: true,
		{StatusProcessing, StatusFailed}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]RequestStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionUnknownStates(t *testing.T) {
	assert.False(t, CanTransition(RequestStatus("archived"), StatusProcessing))
	assert.False(t, CanTransition(StatusPending, RequestStatus("archived")))
}

func TestNormalizeClassification(t *testing.T) {
	tests := []struct {
		label string
		want  Classification
	}{
		{"safe", ClassificationSafe},
		{"SAFE", ClassificationSafe},
		{"  Toxic  ", ClassificationToxic},
		{"SPAM", ClassificationSpam},
		{"Harassment", ClassificationHarassment},
		{"inappropriate", ClassificationInappropriate},
		// Unknown labels flag; they must never pass as safe.
		{"offensive", ClassificationInappropriate},
		{"benign", ClassificationInappropriate},
		{"", ClassificationInappropriate},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeClassification(tt.label), "label %q", tt.label)
	}
}

func TestResultFlagged(t *testing.T) {
	safe := &ModerationResult{Classification: ClassificationSafe}
	assert.False(t, safe.Flagged())

	for _, c := range []Classification{ClassificationToxic, ClassificationSpam, ClassificationHarassment, ClassificationInappropriate} {
		res := &ModerationResult{Classification: c}
		assert.True(t, res.Flagged(), "classification %s", c)
	}
}
