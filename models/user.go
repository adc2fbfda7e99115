package models

const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

type User struct {
	ID       int64  `gorm:"primaryKey;column:id" json:"id" yaml:"id"`
	Name     string `gorm:"column:name;size:100;not null" json:"name" yaml:"name"`
	Email    string `gorm:"column:email;size:100;not null;unique" json:"email" yaml:"email"`
	Password string `gorm:"column:password;size:100;not null" json:"-" yaml:"password"`
	Role     string `gorm:"column:role;size:50" json:"role" yaml:"role"`
}

func (User) TableName() string {
	return "users"
}

// OrderingRole maps the stored role onto the roles the ordering flow knows.
// Anything unrecognised orders as a customer.
func (u User) OrderingRole() string {
	switch u.Role {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return u.Role
	default:
		return RoleCustomer
	}
}
