package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/civichub/internal/cache"
	"github.com/geocoder89/civichub/internal/config"
	"github.com/geocoder89/civichub/internal/domain/activity"
	"github.com/geocoder89/civichub/internal/storage"
	"github.com/geocoder89/civichub/internal/utils"
	"github.com/gin-gonic/gin"
)

type ActivitiesStore interface {
	Create(ctx context.Context, a activity.Activity) (activity.Activity, error)
	List(ctx context.Context, f activity.ListFilter) ([]activity.Activity, int, error)
	GetByID(ctx context.Context, id string) (activity.Activity, error)
	Update(ctx context.Context, id string, p activity.Patch) (activity.Activity, error)
	Delete(ctx context.Context, id string) (activity.Activity, error)
}

type ActivitiesHandler struct {
	repo      ActivitiesStore
	docs      storage.DocumentStore
	cache     cache.Store
	maxUpload int64
	log       *slog.Logger
}

func NewActivitiesHandler(repo ActivitiesStore, docs storage.DocumentStore, c cache.Store, maxUpload int64, log *slog.Logger) *ActivitiesHandler {
	if log == nil {
		log = slog.Default()
	}

	return &ActivitiesHandler{
		repo:      repo,
		docs:      docs,
		cache:     c,
		maxUpload: maxUpload,
		log:       log,
	}
}

const (
	defaultListLimit = 20
	uploadField      = "readMore"
)

type listActivitiesQuery struct {
	Type     string `form:"type" binding:"omitempty,max=40"`
	Congress string `form:"congress" binding:"omitempty,max=20"`
	TermID   string `form:"termId" binding:"omitempty,uuid"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

func (h *ActivitiesHandler) CreateActivity(ctx *gin.Context) {
	var req activity.CreateRequest

	if !bindBody(ctx, &req) {
		return
	}

	// reject a bad date before anything is uploaded
	if _, err := activity.ParseDate(req.Date); err != nil {
		respondActivityError(ctx, err, "")
		return
	}

	readMore, ok := h.saveUpload(ctx)
	if !ok {
		return
	}

	a, err := activity.NewFromCreateRequest(req, readMore)
	if err != nil {
		h.discard(readMore)
		respondActivityError(ctx, err, "Could not create activity")
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, a)
	if err != nil {
		h.discard(readMore)
		respondActivityError(ctx, err, "Could not create activity")
		return
	}

	h.invalidate(cctx)

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Activity created successfully",
		"info":    created,
	})
}

func (h *ActivitiesHandler) ListActivities(ctx *gin.Context) {
	var q listActivitiesQuery

	if err := ctx.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(ctx, "Invalid query parameters", parseBindError(err, &q))
		return
	}

	f := activity.ListFilter{
		Type:     optional(q.Type),
		Congress: optional(q.Congress),
		TermID:   optional(q.TermID),
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if f.Limit == 0 {
		f.Limit = defaultListLimit
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	key := utils.BuildActivitiesListCacheKey(f)

	if b, err := h.cache.Get(cctx, key); err == nil {
		ctx.Header("X-Cache", "HIT")
		RespondRawJSONWithETag(ctx, http.StatusOK, b)
		return
	} else if !errors.Is(err, cache.ErrMiss) {
		h.log.WarnContext(cctx, "cache_get_failed", "key", key, "err", err)
	}

	items, total, err := h.repo.List(cctx, f)
	if err != nil {
		respondActivityError(ctx, err, "Could not list activities")
		return
	}

	b, err := json.Marshal(gin.H{
		"items":  items,
		"count":  len(items),
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
	})
	if err != nil {
		RespondInternal(ctx, "Could not list activities")
		return
	}

	h.remember(cctx, key, b)

	ctx.Header("X-Cache", "MISS")
	RespondRawJSONWithETag(ctx, http.StatusOK, b)
}

func (h *ActivitiesHandler) GetActivity(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Activity not found")
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	key := utils.BuildActivityCacheKey(id)

	if b, err := h.cache.Get(cctx, key); err == nil {
		ctx.Header("X-Cache", "HIT")
		RespondRawJSONWithETag(ctx, http.StatusOK, b)
		return
	}

	a, err := h.repo.GetByID(cctx, id)
	if err != nil {
		respondActivityError(ctx, err, "Could not fetch activity")
		return
	}

	b, err := json.Marshal(a)
	if err != nil {
		RespondInternal(ctx, "Could not fetch activity")
		return
	}

	h.remember(cctx, key, b)

	ctx.Header("X-Cache", "MISS")
	RespondRawJSONWithETag(ctx, http.StatusOK, b)
}

func (h *ActivitiesHandler) UpdateActivity(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Activity not found")
		return
	}

	var req activity.UpdateRequest

	if !bindBody(ctx, &req) {
		return
	}

	patch, err := activity.PatchFromUpdateRequest(req, nil)
	if err != nil {
		respondActivityError(ctx, err, "")
		return
	}

	cctx, cancel := requestContext(ctx, 5*time.Second)
	defer cancel()

	prev, err := h.repo.GetByID(cctx, id)
	if err != nil {
		respondActivityError(ctx, err, "Could not update activity")
		return
	}

	readMore, ok := h.saveUpload(ctx)
	if !ok {
		return
	}
	patch.ReadMore = readMore

	if patch.Empty() {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	updated, err := h.repo.Update(cctx, id, patch)
	if err != nil {
		h.discard(readMore)
		respondActivityError(ctx, err, "Could not update activity")
		return
	}

	// the new document replaced the old one
	if readMore != nil && prev.ReadMore != nil && *prev.ReadMore != *readMore {
		h.discard(prev.ReadMore)
	}

	h.invalidate(cctx)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Activity updated successfully",
		"info":    updated,
	})
}

func (h *ActivitiesHandler) DeleteActivity(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Activity not found")
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	deleted, err := h.repo.Delete(cctx, id)
	if err != nil {
		respondActivityError(ctx, err, "Could not delete activity")
		return
	}

	h.discard(deleted.ReadMore)
	h.invalidate(cctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Activity deleted successfully"})
}

// saveUpload stores the optional readMore document. ok is false when a
// response has already been written.
func (h *ActivitiesHandler) saveUpload(ctx *gin.Context) (*string, bool) {
	if !strings.HasPrefix(ctx.ContentType(), "multipart/") {
		return nil, true
	}

	fh, err := ctx.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		RespondBadRequest(ctx, "Invalid upload", gin.H{"field": uploadField})
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		RespondBadRequest(ctx, "Invalid upload", gin.H{"field": uploadField})
		return nil, false
	}
	defer f.Close()

	doc, err := storage.Sniff(f, fh.Size, h.maxUpload)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Document exceeds the upload limit", gin.H{"field": uploadField})
		case errors.Is(err, storage.ErrUnsupportedType):
			RespondError(ctx, http.StatusUnsupportedMediaType, "unsupported_media_type", "Document must be a PDF, Word or plain text file", gin.H{"field": uploadField})
		case errors.Is(err, storage.ErrEmptyDocument):
			RespondBadRequest(ctx, "Document is empty", gin.H{"field": uploadField})
		default:
			RespondInternal(ctx, "Could not read document")
		}
		return nil, false
	}

	cctx, cancel := requestContext(ctx, 30*time.Second)
	defer cancel()

	url, err := h.docs.Put(cctx, doc)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "document_store_failed", "key", doc.Key, "err", err)
		RespondInternal(ctx, "Could not store document")
		return nil, false
	}

	return &url, true
}

func (h *ActivitiesHandler) discard(url *string) {
	if url == nil || *url == "" {
		return
	}

	// not tied to the request context
	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := h.docs.Delete(cctx, *url); err != nil {
		h.log.WarnContext(cctx, "document_delete_failed", "url", *url, "err", err)
	}
}

func (h *ActivitiesHandler) remember(ctx context.Context, key string, b []byte) {
	if err := h.cache.Set(ctx, key, b); err != nil {
		h.log.WarnContext(ctx, "cache_set_failed", "key", key, "err", err)
	}
}

func (h *ActivitiesHandler) invalidate(ctx context.Context) {
	if err := h.cache.DeletePrefix(ctx, utils.ActivitiesCachePrefix); err != nil {
		h.log.WarnContext(ctx, "cache_invalidate_failed", "err", err)
	}
}

func respondActivityError(ctx *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, activity.ErrNotFound):
		RespondNotFound(ctx, "Activity not found")
	case errors.Is(err, activity.ErrInvalidDate):
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
			Field:   "date",
			Rule:    "date",
			Message: "must be RFC3339 or YYYY-MM-DD",
		}}})
	case errors.Is(err, activity.ErrUnknownTerm):
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
			Field:   "termId",
			Rule:    "exists",
			Message: "term does not exist",
		}}})
	case errors.Is(err, context.DeadlineExceeded):
		RespondError(ctx, http.StatusServiceUnavailable, "timeout", "Request timed out", nil)
	default:
		RespondInternal(ctx, internalMsg)
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
