package model

// Staff roles.  Admins may additionally delete computers and sessions and
// toggle maintenance.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User is a staff account as stored in the `users` table.  The password hash
// never leaves the repository layer; responses use the ID/username/role
// triple only.
type User struct {
	ID           uint64 `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}
