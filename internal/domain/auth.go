package domain

import (
	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the payload encoded in an access token: {id, email, role, iat, exp}.
type Claims struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Account is either a full *User or a *ProvisionalUser rebuilt from token claims.
// The unexported marker keeps the set closed.
type Account interface {
	AccountID() int64
	AccountEmail() string
	AccountRole() string
	Provisional() bool
	account()
}

// ProvisionalUser is reconstructed solely from token claims and lacks profile data.
// Callers must not treat it as a real profile.
type ProvisionalUser struct {
	ID    int64
	Email string
	Role  string
}

// NewProvisionalUser builds a provisional account from decoded claims.
func NewProvisionalUser(c *Claims) *ProvisionalUser {
	if c == nil {
		return nil
	}
	return &ProvisionalUser{ID: c.ID, Email: c.Email, Role: c.Role}
}

func (u *User) AccountID() int64     { return u.ID }
func (u *User) AccountEmail() string { return u.Email }
func (u *User) AccountRole() string  { return u.Role }
func (u *User) Provisional() bool    { return false }
func (u *User) account()             {}

func (p *ProvisionalUser) AccountID() int64     { return p.ID }
func (p *ProvisionalUser) AccountEmail() string { return p.Email }
func (p *ProvisionalUser) AccountRole() string  { return p.Role }
func (p *ProvisionalUser) Provisional() bool    { return true }
func (p *ProvisionalUser) account()             {}

// Session is the credential bundle returned by login and register.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user"`
}

// AuthResult is what the auth service hands back after login or register.
type AuthResult struct {
	AccessToken string
	User        *User
}
