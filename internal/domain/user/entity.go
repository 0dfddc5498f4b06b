package user

type Role string

// Role values are issued by the backend API and compared verbatim.
const (
	RoleAdmin     Role = "Admin"
	RoleCounselor Role = "Guru BK"
	RoleTeacher   Role = "Guru"
	RoleStudent   Role = "Siswa"
)

// User is the identity carried by a verified session token.
type User struct {
	ID       string
	Username string
	Name     string
	Role     Role
}

// IsAdmin checks if user is a school administrator
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsCounselor checks if user is a counseling (BK) teacher
func (u *User) IsCounselor() bool {
	return u.Role == RoleCounselor
}

// DisplayName falls back to the username when the token carries no name.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
