package rbac

// Role names. Keep these stable; they are part of the staff token contract.
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
