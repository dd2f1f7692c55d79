package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDenylistClassifier_Classify(t *testing.T) {
	c := NewDenylistClassifier([]string{"scam", "stolen", ""})

	tests := []struct {
		name    string
		text    string
		want    bool
		matched string
	}{
		{"clean text", "2019 BMW X5, one owner, full service history", false, ""},
		{"exact term", "this is a scam", true, "scam"},
		{"mixed case", "definitely not a SCAM offer", true, "scam"},
		{"term inside word", "unSTOLEN paperwork", true, "stolen"},
		{"empty text", "", false, ""},
		{"second term", "stolen goods", true, "stolen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			assert.Equal(t, tt.want, got.Violating)
			assert.Equal(t, tt.matched, got.MatchedTerm)
		})
	}
}

func TestDenylistClassifier_EmptyDenylist(t *testing.T) {
	c := NewDenylistClassifier(nil)
	assert.False(t, c.Classify("anything at all").Violating)
}

func TestDenylistClassifier_TermsAreTrimmedAndLowered(t *testing.T) {
	c := NewDenylistClassifier([]string{"  Fraud  "})
	got := c.Classify("FRAUD alert")
	assert.True(t, got.Violating)
	assert.Equal(t, "fraud", got.MatchedTerm)
}
