package conversation

// Owner identifies on whose behalf a conversation is accessed. OwnedBy restricts
// lookups to one user's conversations; SystemInitiated is used by the server when
// it posts into a conversation with no end-user actor and skips the owner filter.
// The zero value is neither and is rejected.
type Owner struct {
	userID int64
	system bool
}

// OwnedBy returns an Owner scoped to userID
func OwnedBy(userID int64) Owner {
	return Owner{userID: userID}
}

// SystemInitiated returns the Owner used for server-authored access
func SystemInitiated() Owner {
	return Owner{system: true}
}

// UserID returns the owning user and whether the owner filter applies
func (o Owner) UserID() (int64, bool) {
	return o.userID, !o.system
}

// IsSystem reports whether o bypasses the owner filter
func (o Owner) IsSystem() bool {
	return o.system
}

// Valid reports whether o is a system owner or a positive user id
func (o Owner) Valid() bool {
	return o.system || o.userID > 0
}
