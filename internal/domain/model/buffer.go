package model

// Buffer holds the cached full diff text for a review session and owns the
// per-file path collection.
type Buffer struct {
	ID       string
	ReviewID string
	RawText  string

	Paths []Path
}

// CurrentPath returns the path currently selected for display, or nil when no
// path is current. At most one path per buffer carries the flag; if that was
// ever violated the first match wins.
func (b *Buffer) CurrentPath() *Path {
	for i := range b.Paths {
		if b.Paths[i].AtPos {
			return &b.Paths[i]
		}
	}
	return nil
}
