package delivery

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	accountdelivery "homeops-backend/internal/account/delivery"
	"homeops-backend/internal/inbox/domain"
	"homeops-backend/internal/inbox/dto"
	"homeops-backend/internal/inbox/usecase"
	"homeops-backend/pkg/scoring"

	"github.com/gin-gonic/gin"
)

// maxPreviewBody caps a preview request at 4 MiB.
const maxPreviewBody = 4 << 20

type InboxHandler struct {
	inboxUsecase usecase.InboxUsecase
	queue        usecase.Enqueuer
}

func NewInboxHandler(inboxUsecase usecase.InboxUsecase, queue usecase.Enqueuer) *InboxHandler {
	return &InboxHandler{
		inboxUsecase: inboxUsecase,
		queue:        queue,
	}
}

func (h *InboxHandler) GetFeed(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	emails, err := h.inboxUsecase.GetFeed(c.Request.Context(), accountdelivery.UserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	total, err := h.inboxUsecase.CountFeed(c.Request.Context(), accountdelivery.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FeedResponse{Emails: emails, Total: total, Limit: limit, Offset: offset})
}

func (h *InboxHandler) GetCalibration(c *gin.Context) {
	cal, err := h.inboxUsecase.GetCalibration(c.Request.Context(), accountdelivery.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

func (h *InboxHandler) GetEmail(c *gin.Context) {
	email, err := h.inboxUsecase.GetEmail(c.Request.Context(), accountdelivery.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, email)
}

func (h *InboxHandler) Search(c *gin.Context) {
	query := c.Query("q")
	results, err := h.inboxUsecase.Search(c.Request.Context(), accountdelivery.UserID(c), query, queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SearchResponse{Query: query, Results: results})
}

// Sync queues a background sync. With ?wait=true it syncs inline and returns
// the result.
func (h *InboxHandler) Sync(c *gin.Context) {
	userID := accountdelivery.UserID(c)

	if c.Query("wait") == "true" || h.queue == nil {
		result, err := h.inboxUsecase.SyncInbox(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if err := h.queue.Enqueue(userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.SyncQueuedResponse{Message: "sync queued", UserID: userID})
}

// Watch starts Gmail push notifications for the caller's mailbox
func (h *InboxHandler) Watch(c *gin.Context) {
	state, err := h.inboxUsecase.Watch(c.Request.Context(), accountdelivery.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *InboxHandler) Rescore(c *gin.Context) {
	result, err := h.inboxUsecase.Rescore(c.Request.Context(), accountdelivery.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Preview scores the posted records without storing them. Results keep the
// request order.
func (h *InboxHandler) Preview(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPreviewBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	records, err := decodeRecords(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scorer := h.inboxUsecase.Scorer()
	c.JSON(http.StatusOK, dto.PreviewResponse{
		Results:     h.inboxUsecase.Preview(records),
		Threshold:   scorer.Threshold(),
		RuleVersion: scorer.Rules().Version,
	})
}

func decodeRecords(body []byte) ([]scoring.EmailRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("request body is empty")
	}

	if body[0] == '[' {
		var records []scoring.EmailRecord
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, errors.New("body must be a JSON array of email records")
		}
		return records, nil
	}

	var req dto.PreviewRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.New(`body must be a JSON array or an object with "emails"`)
	}
	return req.Emails, nil
}

func queryInt(c *gin.Context, key string, def int) int {
	if s := c.Query(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEmailNotFound), errors.Is(err, domain.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyQuery):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSyncInProgress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNoMailSource):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrQueueFull), errors.Is(err, domain.ErrPushDisabled):
		status = http.StatusServiceUnavailable
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
