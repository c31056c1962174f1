package lotterydomain

// AccessControl gates privileged operations to the owner fixed at
// construction.
type AccessControl struct {
	owner Address
}

func NewAccessControl(owner Address) AccessControl {
	return AccessControl{owner: owner}
}

func (a AccessControl) Owner() Address { return a.owner }

// Authorize returns ErrAccessDenied unless caller is the owner.
func (a AccessControl) Authorize(caller Address) error {
	if caller != a.owner {
		return ErrAccessDenied
	}
	return nil
}
