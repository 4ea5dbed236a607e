package model

import (
	"encoding/json"
	"fmt"
)

// Review is the root entity for one pull-request review session. It caches the
// remote payloads (infos, diff, comment list) alongside session-local
// annotations, and owns the buffer hierarchy beneath it.
type Review struct {
	ID     string
	Owner  string
	Repo   string
	Number int
	Host   string
	SHA    string // Head commit SHA, extracted from the last fetched infos payload.

	RawInfos    json.RawMessage   // Last fetched PR payload, stored verbatim.
	RawDiff     string            // Full diff text as fetched.
	RawComments []json.RawMessage // Review comment payloads, newest first.

	// Session-local annotations.
	Feedback   string
	State      string
	Replies    string
	ReviewText string
	Callback   string

	// Owned buffers. In practice zero or one; domain operations act on the
	// first element when more exist.
	Buffers []Buffer
}

// Slug returns the owner/repo#number identifier for logs and display.
func (r Review) Slug() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// ActiveBuffer returns the review's buffer, or nil when none has been created
// yet. The first buffer wins when more than one exists.
func (r *Review) ActiveBuffer() *Buffer {
	if len(r.Buffers) == 0 {
		return nil
	}
	return &r.Buffers[0]
}

// ReviewSummary is the owner/repo/number/sha projection of a review.
type ReviewSummary struct {
	Owner  string
	Repo   string
	Number int
	SHA    string
}
