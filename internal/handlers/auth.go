package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ovasylenko/contactbook-backend/internal/config"
	"github.com/ovasylenko/contactbook-backend/internal/models"
	"github.com/ovasylenko/contactbook-backend/internal/services"
	"github.com/ovasylenko/contactbook-backend/pkg/utils"
)

var (
	cfg               *config.Config
	tokenService      *services.TokenService
	mailer            *services.Mailer
	cloudinaryService *services.CloudinaryService
)

// Init wires the auth services from the loaded configuration. Mail and
// Cloudinary are optional; the corresponding features degrade with a log
// line when credentials are missing.
func Init(c *config.Config) error {
	cfg = c
	tokenService = services.NewTokenService(c.JWTSecret)

	if c.MailConfigured() {
		mailer = services.NewMailer(c.SMTPHost, c.SMTPPort, c.SMTPUsername, c.SMTPPassword, c.MailFrom, c.FrontendURL)
	} else {
		log.Println("⚠️  WARNING: SMTP not configured. Verification and reset emails will not be sent.")
	}

	if c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != "" {
		service, err := services.NewCloudinaryService(c.CloudinaryName, c.CloudinaryAPIKey, c.CloudinaryAPISecret)
		if err != nil {
			return err
		}
		cloudinaryService = service
	} else {
		log.Println("⚠️  WARNING: Cloudinary credentials not found. Avatar uploads will not be available.")
	}

	return nil
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	User    map[string]interface{} `json:"user,omitempty"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, AuthResponse{Success: false, Message: message})
}

// Register handles user registration and dispatches a verification email.
func Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	if err := utils.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "Password must be at least 8 characters")
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		writeError(w, http.StatusUnprocessableEntity, "Display name is required")
		return
	}

	email := utils.NormalizeEmail(req.Email)

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user, err := services.CreateUser(email, hashedPassword, strings.TrimSpace(req.DisplayName))
	if err != nil {
		if errors.Is(err, services.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "User with this email already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	verifyToken, err := tokenService.Issue(user.ID, user.Email, services.PurposeVerify, cfg.VerifyTokenTTL)
	if err != nil {
		// The account exists; the user can request a fresh link later
		log.Printf("register: failed to issue verification token for %s: %v", user.ID, err)
	} else {
		sendMailAsync(user.Email, verifyToken, false)
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created. Please check your email to verify your account.",
		User: map[string]interface{}{
			"id":           user.ID.String(),
			"email":        user.Email,
			"display_name": user.DisplayName,
			"role":         user.Role,
			"is_verified":  user.IsVerified,
			"created_at":   user.CreatedAt,
		},
	})
}

// Login authenticates a user and returns a bearer access token. Unknown
// email and wrong password produce the identical response so callers
// cannot probe which accounts exist.
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := services.GetUserByEmail(utils.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !valid {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !user.IsVerified {
		writeError(w, http.StatusForbidden, "Email not verified. Please check your email to verify your account.")
		return
	}

	accessToken, err := tokenService.Issue(user.ID, user.Email, services.PurposeAccess, cfg.AccessTokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: accessToken, TokenType: "bearer"})
}

// VerifyEmail redeems an email-verification token. Verifying an already
// verified account is an idempotent success.
func VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "Verification token is required")
		return
	}

	claims, err := tokenService.Decode(token, services.PurposeVerify)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired verification token")
		return
	}

	user, err := services.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusBadRequest, "Invalid or expired verification token")
			return
		}
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !user.IsVerified {
		if err := services.SetVerified(user.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to verify email")
			return
		}
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Email successfully verified! You can now log in.",
	})
}

// GetMe returns the authenticated user's profile. This is the hottest
// path in the system: snapshots come from the cache whenever possible.
func GetMe(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := currentUser(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "OK",
		User:    snapshotMap(snapshot),
	})
}

// UpdateAvatar uploads a new avatar image and invalidates the user's
// cached snapshots so the change is visible immediately.
func UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := currentUser(w, r)
	if !ok {
		return
	}

	if cloudinaryService == nil {
		writeError(w, http.StatusInternalServerError, "File upload service not available")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "No file provided")
		return
	}
	defer file.Close()

	avatarURL, err := cloudinaryService.UploadAvatar(r.Context(), file, snapshot.ID.String())
	if err != nil {
		log.Printf("avatar upload failed for %s: %v", snapshot.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to upload avatar")
		return
	}

	if err := services.SetAvatarURL(snapshot.ID, avatarURL); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update avatar")
		return
	}
	services.Cache.Invalidate(snapshot.ID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"avatar_url": avatarURL,
	})
}

// SetDefaultAvatar resets the caller's avatar to the configured default.
// Admin only.
func SetDefaultAvatar(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := currentUser(w, r)
	if !ok {
		return
	}

	if snapshot.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "Admin privileges required")
		return
	}

	if err := services.SetAvatarURL(snapshot.ID, cfg.DefaultAvatarURL); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update avatar")
		return
	}
	services.Cache.Invalidate(snapshot.ID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"avatar_url": cfg.DefaultAvatarURL,
	})
}

// RequestPasswordReset issues a reset token when the email is known.
// The response is identical either way so the endpoint cannot be used to
// enumerate accounts.
func RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req RequestPasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	user, err := services.GetUserByEmail(utils.NormalizeEmail(req.Email))
	if err == nil {
		resetToken, issueErr := tokenService.Issue(user.ID, user.Email, services.PurposeReset, cfg.ResetTokenTTL)
		if issueErr == nil {
			// Storing the new hash revokes any previously issued reset token
			tokenHash, hashErr := utils.HashPassword(resetToken)
			if hashErr == nil {
				if stateErr := services.SetPasswordResetState(user.ID, tokenHash, time.Now().Add(cfg.ResetTokenTTL)); stateErr == nil {
					sendMailAsync(user.Email, resetToken, true)
				} else {
					log.Printf("password reset: failed to store reset state for %s: %v", user.ID, stateErr)
				}
			}
		}
	} else if !errors.Is(err, services.ErrUserNotFound) {
		log.Printf("password reset: lookup failed: %v", err)
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "If an account exists with this email, you will receive a password reset link.",
	})
}

// ResetPassword consumes a reset token. The token must verify
// cryptographically AND match the hash stored on the user row, so issuing
// a new token revokes old ones and a consumed token cannot be replayed.
func ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate the new password before touching any state
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "Password must be at least 8 characters")
		return
	}

	claims, err := tokenService.Decode(req.Token, services.PurposeReset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	user, err := services.GetUserByID(claims.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	if user.ResetTokenHash == "" {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	match, err := utils.VerifyPassword(req.Token, user.ResetTokenHash)
	if err != nil || !match {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	if time.Now().After(user.ResetTokenExpiresAt) {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	if err := services.UpdatePasswordHash(user.ID, newHash); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}
	if err := services.ClearPasswordResetState(user.ID); err != nil {
		log.Printf("password reset: failed to clear reset state for %s: %v", user.ID, err)
	}
	services.Cache.Invalidate(user.ID)

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Password updated successfully. You can now log in.",
	})
}

// currentUser resolves the bearer token to a user snapshot, serving from
// the cache when possible and populating it on miss. Writes 401 and
// returns ok=false when the request is not authenticated.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.UserSnapshot, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := tokenService.Decode(token, services.PurposeAccess)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	if snapshot, ok := services.Cache.Get(token); ok {
		return snapshot, true
	}

	user, err := services.GetUserByID(claims.UserID)
	if err != nil {
		// Token outlived the account, or the directory is down; either
		// way the request is not authenticated
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	snapshot := user.Snapshot()
	services.Cache.Put(token, snapshot)
	return snapshot, true
}

func snapshotMap(s *models.UserSnapshot) map[string]interface{} {
	m := map[string]interface{}{
		"id":           s.ID.String(),
		"email":        s.Email,
		"display_name": s.DisplayName,
		"role":         s.Role,
		"is_verified":  s.IsVerified,
	}
	if s.AvatarURL != "" {
		m["avatar_url"] = s.AvatarURL
	}
	return m
}

// sendMailAsync dispatches email off the request's critical path. Failures
// are logged only; the user/token state is already committed.
func sendMailAsync(to, token string, reset bool) {
	if mailer == nil {
		log.Printf("mail not configured, skipping send to %s", to)
		return
	}
	go func() {
		var err error
		if reset {
			err = mailer.SendPasswordResetEmail(to, token)
		} else {
			err = mailer.SendVerificationEmail(to, token)
		}
		if err != nil {
			log.Printf("mail dispatch failed: %v", err)
		}
	}()
}
