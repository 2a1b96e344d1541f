package auth

// Authorize decides whether principal may access a resource guarded by the
// given required roles. The role set is flat; the single standing exception
// is that an administrator passes every check. No required roles means the
// resource is open to any authenticated principal.
func Authorize(p Principal, required ...Role) error {
	if !p.Role.Valid() {
		return ErrForbidden
	}
	if len(required) == 0 || p.Role == RoleAdmin {
		return nil
	}
	for _, r := range required {
		if p.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
