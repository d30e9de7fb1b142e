package service

import "github.com/noah-isme/rchan-moderation-api/internal/models"

// Decision is the initial review state for a new post or repost.
type Decision struct {
	ApprovalStatus models.ApprovalStatus
	FileStatus     models.FileStatus
}

// ApprovalPolicy decides the initial state of submitted content.
type ApprovalPolicy struct {
	words *ContentValidator
}

// NewApprovalPolicy builds a policy over the restricted word matcher.
func NewApprovalPolicy(words *ContentValidator) *ApprovalPolicy {
	return &ApprovalPolicy{words: words}
}

// Decide never fails. Files always go to manual review and keep the requested file
// status (VISIBLE when none was given). Text-only content is held when it matches the
// word list and auto approved otherwise.
func (p *ApprovalPolicy) Decide(hasFile bool, content string, requested models.FileStatus) Decision {
	if hasFile {
		fileStatus := requested
		if fileStatus == "" || fileStatus == models.FileUnknown {
			fileStatus = models.FileVisible
		}
		return Decision{ApprovalStatus: models.ApprovalPending, FileStatus: fileStatus}
	}
	if p != nil && p.words.ContainsRestricted(content) {
		return Decision{ApprovalStatus: models.ApprovalPending, FileStatus: models.FileUnknown}
	}
	return Decision{ApprovalStatus: models.ApprovalAutoApproved, FileStatus: models.FileUnknown}
}
