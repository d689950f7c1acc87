package user

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/kosakata/core"
)

// Role is the closed set of user kinds. The zero value is not a valid role.
type Role uint8

const (
	RoleStudent Role = iota + 1 // -> STUDENT PORTAL; submits daily vocabulary
	RoleTeacher                 // -> TEACHER PORTAL; reviews submissions
	RoleAdmin                   // -> ADMIN PORTAL
)

var (
	AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

	roleNames = map[Role]string{
		RoleStudent: "student",
		RoleTeacher: "teacher",
		RoleAdmin:   "admin",
	}
)

func ParseRole(s string) (Role, error) {
	s = core.CleanString(s, true /* lower */)
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, ErrInvalidRole
}

func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, ErrInvalidRole
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// CanReview reports whether users with this role grade submissions.
func (r Role) CanReview() bool {
	switch r {
	case RoleTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	IsActive     bool       `json:"is_active"`
	Role         Role       `json:"role"`
	EnrolledOn   civil.Date `json:"enrolled_on"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
	LastLogin    time.Time  `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string     `json:"name" validate:"required,notblank"`
	Username        string     `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string     `json:"email" validate:"omitempty,email"`
	Password        string     `json:"password" validate:"required"`
	PasswordConfirm string     `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            Role       `json:"role" validate:"role"`
	EnrolledOn      civil.Date `json:"enrolled_on"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

type QueryFilter struct {
	Search   string
	Role     Role
	IsActive *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
