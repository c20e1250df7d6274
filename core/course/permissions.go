package course

// Role is a minimum level of access to a course.
type Role int

const (
	RoleEnrolled Role = iota + 1
	RoleOwner
)

// Check selects what a gated piece of content requires.
type Check int

const (
	CheckAlways Check = iota
	CheckNever
	CheckEnrolled
	CheckOwner
)

// Permissions of a user on a course, and on everything the course contains.
type Permissions struct {
	IsOwner    bool `json:"is_owner"`
	IsEnrolled bool `json:"is_enrolled"`
}

func PermissionsFor(c Course, userID string, enrolled bool) Permissions {
	isOwner := userID != "" && c.OwnerID == userID
	return Permissions{
		IsOwner:    isOwner,
		IsEnrolled: enrolled && !isOwner,
	}
}

// AtLeast reports whether the permissions grant role. Owners rank above enrolled learners.
func (p Permissions) AtLeast(role Role) bool {
	switch role {
	case RoleOwner:
		return p.IsOwner
	case RoleEnrolled:
		return p.IsOwner || p.IsEnrolled
	}
	return false
}

// IsHidden reports whether the course content must be hidden from the user.
func (p Permissions) IsHidden() bool {
	return !p.AtLeast(RoleEnrolled)
}

// Allows evaluates check; negate inverts the owner and enrolled checks.
func (p Permissions) Allows(check Check, negate bool) bool {
	var ok bool
	switch check {
	case CheckAlways:
		return true
	case CheckNever:
		return false
	case CheckOwner:
		ok = p.AtLeast(RoleOwner)
	case CheckEnrolled:
		ok = p.AtLeast(RoleEnrolled)
	}
	if negate {
		return !ok
	}
	return ok
}
