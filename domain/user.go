package domain

import "database/sql/driver"

type Role string

const (
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
	RoleKitchen Role = "kitchen"
)

func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleCashier, RoleKitchen:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) { return parseEnum[Role]("role", s) }

func (r *Role) UnmarshalJSON(b []byte) error { return unmarshalEnum("role", b, r) }
func (r *Role) Scan(src any) error           { return scanEnum("role", src, r) }
func (r Role) Value() (driver.Value, error)  { return string(r), nil }

type User struct {
	ID        int64  `json:"id" db:"id"`
	Username  string `json:"username" db:"username"`
	Email     string `json:"email" db:"email"`
	Password  string `json:"password,omitempty" db:"password"`
	Role      Role   `json:"role" db:"role"`
	CreatedAt string `json:"created_at,omitempty" db:"created_at"`
}
