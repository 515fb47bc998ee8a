package domain

// Roles carried in access token claims.
const (
	RoleUser  = "user"
	RoleHost  = "host"
	RoleAdmin = "admin"
)

// User is the full profile returned by the backend for an authenticated account.
type User struct {
	ID              int64   `json:"id"`
	UUID            string  `json:"uuid"`
	FirstName       string  `json:"fName"`
	LastName        string  `json:"lName"`
	Email           string  `json:"email"`
	Phone           *string `json:"phone"`
	Role            string  `json:"role"`
	IsActive        bool    `json:"isActive"`
	IsTermsAccepted bool    `json:"isTermsAccepted"`
	IsVerified      bool    `json:"isVerified"`
	Is2FA           bool    `json:"is2fa"`
	LastLogin       *string `json:"lastLogin"`
	Picture         *string `json:"picture"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	FirstName string  `json:"fName"`
	LastName  string  `json:"lName"`
	Phone     *string `json:"phone,omitempty"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the signup payload.
type Registration struct {
	FirstName       string  `json:"fName"`
	LastName        string  `json:"lName"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	Phone           *string `json:"phone,omitempty"`
	IsTermsAccepted bool    `json:"isTermsAccepted"`
}
