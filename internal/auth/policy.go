package auth

// policyKind discriminates the access policy variants.
type policyKind int

const (
	policyAuthenticated policyKind = iota
	policyExactRole
	policyAnyRole
)

// Policy is a pure predicate over a resolved user. Policies carry no
// state beyond their allowed-role set and perform no I/O — classification
// only. A policy failure means "identity known, insufficient privilege"
// (ErrForbidden), never "identity not established".
type Policy struct {
	kind  policyKind
	roles []Role
}

// Authenticated allows any successfully resolved, active user.
func Authenticated() Policy {
	return Policy{kind: policyAuthenticated}
}

// RequireRole allows only users holding exactly the given role.
func RequireRole(role Role) Policy {
	return Policy{kind: policyExactRole, roles: []Role{role}}
}

// AnyRole allows users holding any of the given roles.
func AnyRole(roles ...Role) Policy {
	rs := make([]Role, len(roles))
	copy(rs, roles)
	return Policy{kind: policyAnyRole, roles: rs}
}

// Allows reports whether the user satisfies the policy. A nil user never
// passes — resolution failures are handled before policy evaluation.
func (p Policy) Allows(user *User) bool {
	if user == nil {
		return false
	}

	switch p.kind {
	case policyAuthenticated:
		return true
	case policyExactRole:
		return user.Role == p.roles[0]
	case policyAnyRole:
		for _, r := range p.roles {
			if user.Role == r {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Check evaluates the policy, returning ErrForbidden on failure.
func (p Policy) Check(user *User) error {
	if !p.Allows(user) {
		return ErrForbidden
	}
	return nil
}

// RequiredRoles returns the policy's allowed-role set, for error context
// in forbidden responses. Empty for the authenticated-only policy.
func (p Policy) RequiredRoles() []Role {
	rs := make([]Role, len(p.roles))
	copy(rs, p.roles)
	return rs
}
