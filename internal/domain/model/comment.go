package model

// Comment is the per-path write-progress tracker: an accumulating line count
// and the identifiers already written for that path. It is distinct from
// user-authored review comments, which live in the review's RawComments.
//
// By construction the tracking comment reuses its owning path's id.
type Comment struct {
	ID          string
	PathID      string
	LocWritten  int
	Identifiers []string // Newest first. Appends never deduplicate; membership checks are all that matter.
}

// HasIdentifier reports whether token has been recorded on this comment.
func (c Comment) HasIdentifier(token string) bool {
	for _, id := range c.Identifiers {
		if id == token {
			return true
		}
	}
	return false
}
