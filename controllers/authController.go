package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"jansarthi-be/middlewares"
	"jansarthi-be/models"
	"jansarthi-be/services"
	"jansarthi-be/store"
	"jansarthi-be/utils"
)

type signupRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=255"`
	MobileNumber string `json:"mobile_number" binding:"required,mobile"`
}

type mobileRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required,mobile"`
}

type verifyOTPRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required,min=10,max=15"`
	OTPCode      string `json:"otp_code" binding:"required,min=4,max=10"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

const (
	otpSentMessage    = "OTP sent successfully to your mobile number"
	welcomeSMSTimeout = 15 * time.Second
)

func (h *Controller) otpResponse(mobile, message string) models.OTPResponse {
	return models.OTPResponse{
		Message:          message,
		MobileNumber:     mobile,
		ExpiresInMinutes: int(h.Settings.OTPExpiry.Minutes()),
	}
}

// sendOTP issues a code and writes the error response when that fails.
func (h *Controller) sendOTP(c *gin.Context, mobile string) bool {
	err := h.OTP.Issue(c.Request.Context(), mobile)
	if err == nil {
		return true
	}
	var cd *services.CooldownError
	if errors.As(err, &cd) {
		secs := int(cd.RetryAfter.Seconds())
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": cd.Error(), "retry_after": secs})
		return false
	}
	internalError(c, "Failed to send OTP. Please try again.", err)
	return false
}

// Signup creates an unverified citizen account and sends the first OTP.
func (h *Controller) Signup(c *gin.Context) {
	var input signupRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	mobile := utils.NormalizePhone(input.MobileNumber)

	if _, err := h.Store.GetUserByMobile(ctx, mobile); err == nil {
		detail(c, http.StatusBadRequest, "User with this mobile number already exists. Please login instead.")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		internalError(c, "Failed to look up user", err)
		return
	}

	now := h.now()
	user := &models.User{
		Name:         input.Name,
		MobileNumber: mobile,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			detail(c, http.StatusBadRequest, "User with this mobile number already exists. Please login instead.")
			return
		}
		internalError(c, "Failed to create user", err)
		return
	}

	if !h.sendOTP(c, mobile) {
		return
	}
	c.JSON(http.StatusCreated, h.otpResponse(mobile, otpSentMessage))
}

func (h *Controller) Login(c *gin.Context) {
	var input mobileRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	mobile := utils.NormalizePhone(input.MobileNumber)

	user, err := h.Store.GetUserByMobile(c.Request.Context(), mobile)
	if errors.Is(err, store.ErrNotFound) {
		detail(c, http.StatusNotFound, "User not found. Please signup first.")
		return
	}
	if err != nil {
		internalError(c, "Failed to look up user", err)
		return
	}
	if !user.IsActive {
		detail(c, http.StatusForbidden, "Your account has been deactivated. Please contact support.")
		return
	}

	if !h.sendOTP(c, mobile) {
		return
	}
	c.JSON(http.StatusOK, h.otpResponse(mobile, otpSentMessage))
}

func (h *Controller) tokenResponse(user *models.User) (models.TokenResponse, error) {
	access, refresh, err := h.Tokens.GeneratePair(user.ID, user.MobileNumber)
	if err != nil {
		return models.TokenResponse{}, err
	}
	return models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(h.Tokens.AccessTTL.Seconds()),
		User:         *user,
	}, nil
}

// VerifyOTP consumes a code and returns a token pair. The first successful
// verification marks the account verified and sends a welcome SMS.
func (h *Controller) VerifyOTP(c *gin.Context) {
	var input verifyOTPRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	mobile := utils.NormalizePhone(input.MobileNumber)

	user, err := h.Store.GetUserByMobile(ctx, mobile)
	if errors.Is(err, store.ErrNotFound) {
		detail(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		internalError(c, "Failed to look up user", err)
		return
	}

	if err := h.OTP.Verify(ctx, mobile, input.OTPCode); err != nil {
		var invalid *services.InvalidOTPError
		switch {
		case errors.Is(err, services.ErrOTPNotFound):
			detail(c, http.StatusBadRequest, "No valid OTP found. Please request a new one.")
		case errors.Is(err, services.ErrOTPExpired):
			detail(c, http.StatusBadRequest, "OTP has expired. Please request a new one.")
		case errors.Is(err, services.ErrOTPTooManyAttempts):
			detail(c, http.StatusTooManyRequests, "Too many failed attempts. Please request a new OTP.")
		case errors.As(err, &invalid):
			detail(c, http.StatusBadRequest, invalid.Error())
		default:
			internalError(c, "Failed to verify OTP", err)
		}
		return
	}

	if !user.IsVerified {
		user.IsVerified = true
		user.UpdatedAt = h.now()
		if err := h.Store.UpdateUser(ctx, user); err != nil {
			internalError(c, "Failed to update user", err)
			return
		}
		h.sendWelcome(user)
	}

	resp, err := h.tokenResponse(user)
	if err != nil {
		internalError(c, "Failed to create tokens", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// sendWelcome is best effort and does not hold up the response.
func (h *Controller) sendWelcome(user *models.User) {
	if h.SMS == nil {
		return
	}
	mobile, body := user.MobileNumber, services.WelcomeMessage(user.Name)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), welcomeSMSTimeout)
		defer cancel()
		h.deliverWelcome(ctx, mobile, body)
	}()
}

func (h *Controller) deliverWelcome(ctx context.Context, mobile, body string) {
	if err := h.SMS.Send(ctx, mobile, body); err != nil {
		slog.Warn("Failed to send welcome SMS", "to", utils.MaskPhone(mobile), "error", err)
	}
}

func (h *Controller) RefreshToken(c *gin.Context) {
	var input refreshRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	claims, err := h.Tokens.Verify(input.RefreshToken, utils.RefreshToken)
	if err != nil {
		msg := "Could not validate credentials"
		var typeErr *utils.TokenTypeError
		if errors.As(err, &typeErr) {
			msg = typeErr.Error()
		}
		c.Header("WWW-Authenticate", "Bearer")
		detail(c, http.StatusUnauthorized, msg)
		return
	}

	user, err := h.Store.GetUser(c.Request.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		detail(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		internalError(c, "Failed to look up user", err)
		return
	}
	if !user.IsActive {
		detail(c, http.StatusForbidden, "User account is inactive")
		return
	}

	resp, err := h.tokenResponse(user)
	if err != nil {
		internalError(c, "Failed to create tokens", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetMe retrieves the authenticated user's information
func (h *Controller) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, middlewares.CurrentUser(c))
}

func (h *Controller) ResendOTP(c *gin.Context) {
	var input mobileRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	mobile := utils.NormalizePhone(input.MobileNumber)

	if _, err := h.Store.GetUserByMobile(c.Request.Context(), mobile); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			detail(c, http.StatusNotFound, "User not found")
			return
		}
		internalError(c, "Failed to look up user", err)
		return
	}

	if !h.sendOTP(c, mobile) {
		return
	}
	c.JSON(http.StatusOK, h.otpResponse(mobile, "New OTP sent successfully"))
}
