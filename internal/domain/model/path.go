package model

// Path is one file within the reviewed diff. Revisiting a file inserts a new
// Path row rather than reusing the old one, so several rows may share a name;
// only one path per buffer is ever current.
type Path struct {
	ID       string
	BufferID string
	Name     string
	HeadPos  *int // Position of the first diff hunk; nil until recorded.
	AtPos    bool // True on the single current path of the buffer.

	Comments []Comment
}

// TrackingComment returns the path's write-tracking comment, or nil when none
// has been created. The first comment of the collection is the tracker.
func (p *Path) TrackingComment() *Comment {
	if len(p.Comments) == 0 {
		return nil
	}
	return &p.Comments[0]
}
