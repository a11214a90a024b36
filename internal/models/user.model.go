package models

type Role string

const (
	RoleClinician Role = "clinician"
	RoleAdmin     Role = "admin"
	RoleViewer    Role = "viewer"
)

var Roles = []Role{RoleClinician, RoleAdmin, RoleViewer}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type UserAccount struct {
	BaseUUIDModel
	Username     string `gorm:"column:username;type:text;not null;uniqueIndex" json:"username"`
	Role         Role   `gorm:"column:role;type:text;not null"                 json:"role"`
	PasswordHash string `gorm:"column:password_hash;type:text;not null"        json:"-"`
}

func (UserAccount) TableName() string {
	return "users"
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}
