package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"concertgate/internal/apperr"
	"concertgate/internal/service"
)

// QueueHandler serves waiting-room token issuance and polling.
type QueueHandler struct {
	admissions *service.AdmissionService
}

// NewQueueHandler constructs a QueueHandler.
func NewQueueHandler(admissions *service.AdmissionService) *QueueHandler {
	if admissions == nil {
		panic("nil admission service passed to NewQueueHandler")
	}
	return &QueueHandler{admissions: admissions}
}

type issueTokenRequest struct {
	UserID    uint64 `json:"user_id" validate:"required,gt=0"`
	ConcertID uint64 `json:"concert_id" validate:"required,gt=0"`
}

type tokenResponse struct {
	Token                string `json:"token"`
	Status               string `json:"status"`
	Rank                 int64  `json:"rank"`
	EstimatedWaitSeconds int64  `json:"estimated_wait_seconds"`
}

func toTokenResponse(r *service.IssueResult) tokenResponse {
	return tokenResponse{
		Token:                r.Token,
		Status:               string(r.Status),
		Rank:                 r.Rank,
		EstimatedWaitSeconds: r.EstimatedWaitSeconds,
	}
}

// IssueToken handles POST /api/v1/queue/token. Issuing is idempotent in
// effect but not in identity: every call creates a fresh token, and the
// client is expected to keep polling with the one it received.
func (h *QueueHandler) IssueToken(c echo.Context) error {
	var body issueTokenRequest
	if err := c.Bind(&body); err != nil {
		return fail(c, apperr.ErrInvalidArgument)
	}
	if err := c.Validate(&body); err != nil {
		return fail(c, err)
	}
	res, err := h.admissions.IssueToken(c.Request().Context(), body.UserID, body.ConcertID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toTokenResponse(res))
}

// GetStatus handles GET /api/v1/queue/status. The token travels in the
// X-Queue-Token header; a WAITING response carries the live rank and wait
// estimate so clients can poll until the status flips to ACTIVE.
func (h *QueueHandler) GetStatus(c echo.Context) error {
	token := c.Request().Header.Get(queueTokenHeader)
	res, err := h.admissions.GetStatus(c.Request().Context(), token)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toTokenResponse(res))
}
