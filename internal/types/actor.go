// README: Actor identity passed explicitly into every service call.
package types

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleContractor Role = "contractor"
	RoleEmployee   Role = "employee"
	RoleAdmin      Role = "admin"
)

// Actor is the authenticated caller as resolved by the gateway. The engine
// never reads ambient session state; handlers build an Actor from the
// request and pass it down.
type Actor struct {
	ID   ID
	Role Role
}

func (a Actor) Is(r Role) bool {
	return a.Role == r
}

// IsStaff reports whether the actor may use administrative operations.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleEmployee
}

func ValidRole(r Role) bool {
	switch r {
	case RoleCustomer, RoleContractor, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}
