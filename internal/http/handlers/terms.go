package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/civichub/internal/domain/term"
	"github.com/geocoder89/civichub/internal/utils"
	"github.com/gin-gonic/gin"
)

type TermsStore interface {
	Create(ctx context.Context, req term.CreateRequest) (term.Term, error)
	GetByID(ctx context.Context, id string) (term.Term, error)
	List(ctx context.Context) ([]term.Term, error)
}

type TermsHandler struct {
	repo TermsStore
}

func NewTermsHandler(repo TermsStore) *TermsHandler {
	return &TermsHandler{repo: repo}
}

func (h *TermsHandler) CreateTerm(ctx *gin.Context) {
	var req term.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	t, err := h.repo.Create(cctx, req)
	if err != nil {
		RespondInternal(ctx, "Could not create term")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Term created successfully",
		"info":    t,
	})
}

func (h *TermsHandler) ListTerms(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	items, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list terms")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *TermsHandler) GetTerm(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Term not found")
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	t, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, term.ErrNotFound) {
			RespondNotFound(ctx, "Term not found")
			return
		}
		RespondInternal(ctx, "Could not fetch term")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, t)
}
