package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/rchan-moderation-api/internal/models"
)

func TestContentValidatorMatchesIgnoringCase(t *testing.T) {
	v := NewContentValidator([]string{" Spam ", "", "scam"})

	assert.True(t, v.ContainsRestricted("this is SPAM"))
	assert.True(t, v.ContainsRestricted("a scammer"))
	assert.False(t, v.ContainsRestricted("hello world"))
	assert.False(t, v.ContainsRestricted("   "))

	var nilValidator *ContentValidator
	assert.False(t, nilValidator.ContainsRestricted("spam"))
}

func TestApprovalPolicyDecide(t *testing.T) {
	policy := NewApprovalPolicy(NewContentValidator([]string{"spam"}))

	cases := []struct {
		name      string
		hasFile   bool
		content   string
		requested models.FileStatus
		want      Decision
	}{
		{"clean text", false, "hello", "", Decision{models.ApprovalAutoApproved, models.FileUnknown}},
		{"restricted text", false, "buy SPAM now", "", Decision{models.ApprovalPending, models.FileUnknown}},
		{"file without status", true, "hello", "", Decision{models.ApprovalPending, models.FileVisible}},
		{"file keeps requested status", true, "", models.FileDelete, Decision{models.ApprovalPending, models.FileDelete}},
		{"file with restricted text", true, "spam", models.FileUnknown, Decision{models.ApprovalPending, models.FileVisible}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.Decide(tc.hasFile, tc.content, tc.requested))
		})
	}
}

func TestApprovalPolicyWithoutWordsApprovesText(t *testing.T) {
	policy := NewApprovalPolicy(NewContentValidator(nil))
	assert.Equal(t, models.ApprovalAutoApproved, policy.Decide(false, "anything", "").ApprovalStatus)
}
