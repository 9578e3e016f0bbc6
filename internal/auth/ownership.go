package auth

// Authorize checks that the identity may mutate a resource owned by ownerID.
// Access is granted when the identity is the owner or holds an
// admin-equivalent role; otherwise ErrOwnershipRequired is returned.
//
// Callers must invoke this after identity resolution and before dispatching
// the mutation.
func Authorize(identity *Identity, ownerID int64) error {
	if identity == nil {
		return ErrAuthRequired
	}
	if identity.UserID() == ownerID {
		return nil
	}
	if identity.User.IsAdmin() {
		return nil
	}
	return ErrOwnershipRequired
}
