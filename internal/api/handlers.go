package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centauromax/prep-center-sub000/internal/api/dto"
	"github.com/centauromax/prep-center-sub000/internal/application"
	"github.com/centauromax/prep-center-sub000/internal/domain"
	apperrors "github.com/centauromax/prep-center-sub000/pkg/errors"
	"github.com/centauromax/prep-center-sub000/pkg/logging"
	"github.com/centauromax/prep-center-sub000/pkg/middleware"
)

// Webhook bodies larger than this are rejected outright
const maxWebhookBodyBytes = 1 << 20

// Handlers wires the HTTP surface to the application services
type Handlers struct {
	events        *application.EventService
	search        *application.SearchService
	logger        *logging.Logger
	webhookSecret string
}

func NewHandlers(
	events *application.EventService,
	search *application.SearchService,
	logger *logging.Logger,
	webhookSecret string,
) *Handlers {
	return &Handlers{
		events:        events,
		search:        search,
		logger:        logger.WithComponent("api"),
		webhookSecret: webhookSecret,
	}
}

// Register mounts all API routes
func (h *Handlers) Register(router gin.IRouter) {
	v1 := router.Group("/api/v1")

	v1.POST("/webhooks/shipments", h.HandleWebhook)

	events := v1.Group("/events")
	{
		events.GET("", h.ListEvents)
		events.GET("/:id", h.GetEvent)
		events.POST("/:id/reprocess", h.ReprocessEvent)
	}

	searches := v1.Group("/searches")
	{
		searches.POST("", h.StartSearch)
		searches.GET("/:id", h.GetSearch)
	}
}

// HandleWebhook ingests one shipment webhook delivery. The whole pipeline
// runs synchronously before the reply; the upstream retries on non-2xx.
func (h *Handlers) HandleWebhook(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		responder.RespondBadRequest("failed to read request body")
		return
	}

	// Signature is only enforced when a secret is configured AND the
	// upstream sent the header; legacy deliveries carry no signature.
	if h.webhookSecret != "" {
		if signature := c.GetHeader(SignatureHeader); signature != "" {
			if !VerifySignature(h.webhookSecret, body, signature) {
				responder.RespondWithAppError(apperrors.ErrUnauthorized("invalid webhook signature"))
				return
			}
		}
	}

	outcome, err := h.events.IngestWebhook(c.Request.Context(), body)
	if err != nil {
		h.respondError(responder, err)
		return
	}

	response := dto.WebhookResponse{
		Status:    outcome.Status,
		Message:   outcome.Message,
		EventKind: string(outcome.EventKind),
	}
	if outcome.Event != nil {
		response.UpdateID = outcome.Event.ID.Hex()
	}
	c.JSON(http.StatusOK, response)
}

// ListEvents returns event-log records, newest first
func (h *Handlers) ListEvents(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var request dto.ListEventsRequest
	if err := c.ShouldBindQuery(&request); err != nil {
		responder.RespondBadRequest(err.Error())
		return
	}

	query := application.ListEventsQuery{
		ShipmentID: request.ShipmentID,
		EventKind:  request.Kind,
		Processed:  request.Processed,
		Limit:      request.Limit,
		Offset:     request.Offset,
	}
	filter, pagination := query.ToFilter()

	events, total, err := h.events.ListEvents(c.Request.Context(), filter, pagination)
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, dto.EventListResponse{
		Events: dto.FromEvents(events),
		Total:  total,
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
}

// GetEvent returns a single event-log record
func (h *Handlers) GetEvent(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	event, err := h.events.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(responder, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromEvent(event))
}

// ReprocessEvent resets and synchronously re-runs a stored event
func (h *Handlers) ReprocessEvent(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	event, err := h.events.Reprocess(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(responder, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromEvent(event))
}

// StartSearch launches a background product search
func (h *Handlers) StartSearch(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var request dto.StartSearchRequest
	if appErr := middleware.BindAndValidate(c, &request); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	searchID := h.search.StartSearch(c.Request.Context(), request.MerchantID, request.Keywords)
	c.JSON(http.StatusAccepted, dto.SearchStartedResponse{SearchID: searchID})
}

// GetSearch polls a search job for results accumulated so far
func (h *Handlers) GetSearch(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	status, err := h.search.Poll(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(responder, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSearchStatus(status))
}

func (h *Handlers) respondError(responder *middleware.ErrorResponder, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		responder.RespondWithAppError(appErr)
		return
	}
	if errors.Is(err, domain.ErrEventNotFound) {
		responder.RespondNotFound("event")
		return
	}
	responder.RespondInternalError(err)
}
