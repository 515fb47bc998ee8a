package dto

import "github.com/spec-kit/rental-session/internal/domain"

// LoginRequest payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest payload for POST /users/signup.
type SignupRequest struct {
	FirstName       string  `json:"fName"`
	LastName        string  `json:"lName"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	Phone           *string `json:"phone"`
	IsTermsAccepted bool    `json:"isTermsAccepted"`
}

// SessionResponse is returned by login and signup.
type SessionResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *domain.User `json:"user"`
}

// RefreshRequest payload for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse carries a new access token.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// ResetOTPRequest payload for POST /auth/reset-otp.
type ResetOTPRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest payload for POST /auth/reset-password/:otp.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// ChangePasswordRequest payload for PUT /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ProfileUpdateRequest payload for PUT /auth/profile.
type ProfileUpdateRequest struct {
	FirstName string  `json:"fName"`
	LastName  string  `json:"lName"`
	Phone     *string `json:"phone"`
}

// MessageResponse is the body of endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

// PictureResponse is returned by POST /auth/upload-picture.
type PictureResponse struct {
	PictureURL string `json:"pictureUrl"`
}
