package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rental-session/internal/api/dto"
	"github.com/spec-kit/rental-session/internal/auth"
	"github.com/spec-kit/rental-session/internal/mockapi"
)

// AuthHandler exposes account endpoints.
type AuthHandler struct {
	accounts *mockapi.Accounts
}

// NewAuthHandler constructs handler.
func NewAuthHandler(accounts *mockapi.Accounts) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok || p.User == nil {
		return nil, fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return p, nil
}

// Signup handles POST /users/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	sess, err := h.accounts.Signup(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(sess)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	sess, err := h.accounts.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(sess)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	resp, err := h.accounts.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.accounts.Logout(c.UserContext(), p.User.ID); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Logged out"})
}

// RequestResetOTP handles POST /auth/reset-otp.
func (h *AuthHandler) RequestResetOTP(c *fiber.Ctx) error {
	var req dto.ResetOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if _, err := h.accounts.RequestResetOTP(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "OTP sent to your email address"})
}

// ResetPassword handles POST /auth/reset-password/:otp.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.accounts.ResetPassword(c.UserContext(), c.Params("otp"), req.NewPassword); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Password has been reset"})
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.Profile(c.UserContext(), p.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user})
}

// UpdateProfile handles PUT /auth/profile.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	user, err := h.accounts.UpdateProfile(c.UserContext(), p.User.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user})
}

// ChangePassword handles PUT /auth/change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.accounts.ChangePassword(c.UserContext(), p.User.ID, req); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Password updated"})
}

// UploadPicture handles POST /auth/upload-picture with a multipart "picture" field.
func (h *AuthHandler) UploadPicture(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	file, err := c.FormFile("picture")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "picture is required")
	}
	url, err := h.accounts.SetPicture(c.UserContext(), p.User.ID, file.Filename)
	if err != nil {
		return err
	}
	return c.JSON(dto.PictureResponse{PictureURL: url})
}

// Enable2FA handles POST /users/enable-2fa.
func (h *AuthHandler) Enable2FA(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.accounts.Enable2FA(c.UserContext(), p.User.ID); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Two-factor authentication enabled"})
}
