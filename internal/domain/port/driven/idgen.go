package driven

// IDGenerator supplies fresh random identifiers for new rows. Collision
// probability is negligible and not checked.
type IDGenerator interface {
	NewID() string
}
