package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatekeeper/internal/apierror"
	"github.com/yourusername/gatekeeper/internal/jobs"
	"github.com/yourusername/gatekeeper/internal/profile"
)

var (
	errUserExists         = apierror.Conflict("User already exists.")
	errInvalidCredentials = apierror.Unauthorized("Invalid credentials")
	errProfileNotFound    = apierror.NotFound("User profile not found")
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Register は /register のハンドラーです。登録に成功した場合はそのままログイン状態にします。
func (m *Manager) Register(c *gin.Context) {
	var req credentialsRequest
	if err := apierror.BindJSON(c, &req); err != nil {
		apierror.Abort(c, err)
		return
	}
	ctx := c.Request.Context()

	existing, err := m.store.FindByEmail(ctx, req.Email)
	if err != nil {
		apierror.Abort(c, fmt.Errorf("failed to look up profile: %w", err))
		return
	}
	if existing != nil {
		apierror.Abort(c, errUserExists)
		return
	}

	digest, err := m.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			apierror.Abort(c, apierror.Validation([]apierror.FieldError{{
				Code:    "too_big",
				Path:    []string{"password"},
				Message: "String must contain at most 72 byte(s)",
			}}))
			return
		}
		apierror.Abort(c, fmt.Errorf("failed to hash password: %w", err))
		return
	}

	p := &profile.Profile{Email: req.Email, HashedPassword: digest}
	if err := m.store.Create(ctx, p); err != nil {
		// 事前チェックと作成の間の競合は一意制約で検出される
		if errors.Is(err, profile.ErrDuplicateEmail) {
			apierror.Abort(c, errUserExists.WithCause(err))
			return
		}
		apierror.Abort(c, fmt.Errorf("failed to save profile: %w", err))
		return
	}

	if err := m.startSession(c, p); err != nil {
		apierror.Abort(c, err)
		return
	}
	m.publish(ctx, c, jobs.EventRegistered, p.ID, p.Email)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully.",
	})
}

// Login は /login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	var req credentialsRequest
	if err := apierror.BindJSON(c, &req); err != nil {
		apierror.Abort(c, err)
		return
	}
	ctx := c.Request.Context()

	p, err := m.store.FindByEmail(ctx, req.Email)
	if err != nil {
		apierror.Abort(c, fmt.Errorf("failed to look up profile: %w", err))
		return
	}

	// ユーザー不在とパスワード不一致は応答も処理時間も区別しない
	if p == nil {
		// 紐付け先のユーザーが無いためイベントは記録しない
		m.hasher.VerifyDummy(req.Password)
		apierror.Abort(c, errInvalidCredentials)
		return
	}
	if !m.hasher.Verify(req.Password, p.HashedPassword) {
		m.publish(ctx, c, jobs.EventLoginFailed, p.ID, req.Email)
		apierror.Abort(c, errInvalidCredentials)
		return
	}

	if err := m.startSession(c, p); err != nil {
		apierror.Abort(c, err)
		return
	}
	m.publish(ctx, c, jobs.EventLoginSucceeded, p.ID, p.Email)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged in successfully",
	})
}

// Logout は /logout のハンドラーです。RequireAuthentication の後ろで使用します。
// トークン自体には触れず Cookie を削除するだけです。
func (m *Manager) Logout(c *gin.Context) {
	m.cookies.Clear(c.Writer)

	if identity, ok := IdentityFrom(c); ok {
		m.publish(c.Request.Context(), c, jobs.EventLogout, identity.ID, identity.Email)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logout Successfully",
	})
}

// Profile は /user-profile のハンドラーです。ログイン中ユーザーのプロフィールを返します。
func (m *Manager) Profile(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		apierror.Abort(c, apierror.Unauthenticated())
		return
	}

	p, err := m.store.FindByID(c.Request.Context(), identity.ID)
	if err != nil {
		apierror.Abort(c, fmt.Errorf("failed to load profile: %w", err))
		return
	}
	if p == nil {
		apierror.Abort(c, errProfileNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"profile": p,
	})
}
