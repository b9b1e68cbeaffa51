package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/civichub/internal/accounts"
	"github.com/geocoder89/civichub/internal/domain/user"
	"github.com/geocoder89/civichub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type AccountService interface {
	CreateAccount(ctx context.Context, in accounts.CreateAccountInput) (user.Public, error)
	Login(ctx context.Context, email, password string) (accounts.LoginResult, error)
	GetUser(ctx context.Context, id string) (user.Public, error)
	UpdateUser(ctx context.Context, id string, in accounts.UpdateAccountInput) (user.Public, error)
	DeleteUser(ctx context.Context, id string) error
}

type UsersHandler struct {
	svc AccountService
}

func NewUsersHandler(svc AccountService) *UsersHandler {
	return &UsersHandler{svc: svc}
}

type CreateUserRequest struct {
	FullName string `json:"fullName" binding:"omitempty,max=120"`
	NickName string `json:"nickName" binding:"omitempty,max=60"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,max=72"`
	Role     string `json:"role" binding:"omitempty,alphanum,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	FullName *string `json:"fullName" binding:"omitempty,max=120"`
	NickName *string `json:"nickName" binding:"omitempty,max=60"`
	Email    *string `json:"email" binding:"omitempty,email,max=254"`
	Password *string `json:"password" binding:"omitempty,min=1,max=72"`
	Role     *string `json:"role" binding:"omitempty,alphanum,max=32"`
}

const (
	credentialsCode    = "invalid_credentials"
	credentialsMessage = "Email or password is incorrect."
)

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// only admins hand out roles other than the default
	if req.Role != "" && req.Role != user.RoleRegular && !isAdmin(ctx) {
		RespondForbidden(ctx, "Only admins can assign roles")
		return
	}

	cctx, cancel := requestContext(ctx, 5*time.Second)
	defer cancel()

	u, err := h.svc.CreateAccount(cctx, accounts.CreateAccountInput{
		FullName: req.FullName,
		NickName: req.NickName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondAccountError(ctx, err, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    u,
	})
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 5*time.Second)
	defer cancel()

	res, err := h.svc.Login(cctx, req.Email, req.Password)
	if err != nil {
		// unknown accounts and wrong passwords must look the same
		if errors.Is(err, accounts.ErrUserNotFound) || errors.Is(err, accounts.ErrInvalidCredentials) {
			RespondUnAuthorized(ctx, credentialsCode, credentialsMessage)
			return
		}
		respondAccountError(ctx, err, "Could not log in")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":   "Login successful",
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
		"user":      res.User,
	})
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	u, err := h.svc.GetUser(cctx, ctx.Param("id"))
	if err != nil {
		respondAccountError(ctx, err, "Could not fetch user")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"user": u})
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	var req UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Role != nil && !isAdmin(ctx) {
		RespondForbidden(ctx, "Only admins can change roles")
		return
	}

	cctx, cancel := requestContext(ctx, 5*time.Second)
	defer cancel()

	u, err := h.svc.UpdateUser(cctx, ctx.Param("id"), accounts.UpdateAccountInput{
		FullName: req.FullName,
		NickName: req.NickName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondAccountError(ctx, err, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    u,
	})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	if err := h.svc.DeleteUser(cctx, ctx.Param("id")); err != nil {
		respondAccountError(ctx, err, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func respondAccountError(ctx *gin.Context, err error, internalMsg string) {
	var inputErr *accounts.InputError

	switch {
	case errors.As(err, &inputErr):
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": toFieldErrors(inputErr.Fields)})
	case errors.Is(err, accounts.ErrInvalidInput):
		RespondBadRequest(ctx, "Invalid request body", nil)
	case errors.Is(err, accounts.ErrInvalidCredentials):
		RespondUnAuthorized(ctx, credentialsCode, credentialsMessage)
	case errors.Is(err, accounts.ErrUserNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, accounts.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already in use.")
	case errors.Is(err, context.DeadlineExceeded):
		RespondError(ctx, http.StatusServiceUnavailable, "timeout", "Request timed out", nil)
	default:
		RespondInternal(ctx, internalMsg)
	}
}

func toFieldErrors(in []accounts.FieldError) []FieldError {
	out := make([]FieldError, 0, len(in))
	for _, f := range in {
		out = append(out, FieldError{
			Field:   f.Field,
			Rule:    f.Rule,
			Param:   f.Param,
			Message: validationMessage(f.Rule, f.Param),
		})
	}
	return out
}

func isAdmin(ctx *gin.Context) bool {
	role, ok := middlewares.RoleFromContext(ctx)
	return ok && role == user.RoleAdmin
}
