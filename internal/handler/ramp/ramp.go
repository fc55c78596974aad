package ramp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/pendulum-chain/vortex-sub005/internal/controller"
	"github.com/pendulum-chain/vortex-sub005/internal/monitoring"
	rampengine "github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
	"github.com/pendulum-chain/vortex-sub005/internal/view"
)

type handler struct {
	controller controller.IController
	logger     *logger.Logger
	metrics    *monitoring.HTTPMetrics
}

func New(controller controller.IController, logger *logger.Logger, metrics *monitoring.HTTPMetrics) IHandler {
	return &handler{
		controller: controller,
		logger:     logger,
		metrics:    metrics,
	}
}

// Start godoc
// @Summary Start a ramp
// @Description Prepares the ephemeral accounts and transaction plan for a quoted ramp and starts driving it
// @id startRamp
// @Tags Ramp
// @Accept json
// @Produce json
// @Param request body StartRampRequest true "Ramp request parameters"
// @Success 200 {object} controller.StartRampResult
// @Failure 400 {object} view.ErrorResponse
// @Failure 409 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /ramps [post]
func (h *handler) Start(c *gin.Context) {
	var req StartRampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("[Ramp.Start][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	err := validator.New().Struct(req)
	if err != nil {
		h.logger.Error("[Ramp.Start][Validator]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	result, err := h.controller.StartRamp(c.Request.Context(), req.params())
	if err != nil {
		h.logger.Error("[Ramp.Start][StartRamp]", map[string]string{
			"error":     err.Error(),
			"flowType":  req.FlowType,
			"sessionId": req.SessionID,
		})
		h.record("start", req.FlowType, "error")
		c.JSON(statusOf(err), view.CreateResponse[any](nil, err, req, "failed to start ramp"))
		return
	}

	h.record("start", req.FlowType, "success")
	c.JSON(http.StatusOK, view.CreateResponse[any](result, nil, nil, ""))
}

// Get godoc
// @Summary Get a ramp
// @Description Returns the current state of the session's flow with ephemeral seeds redacted
// @id getRamp
// @Tags Ramp
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} model.RampState
// @Failure 404 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /ramps/{sessionId} [get]
func (h *handler) Get(c *gin.Context) {
	sessionID := c.Param("sessionId")

	state, err := h.controller.GetRamp(c.Request.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, rampengine.ErrNotFound) {
			h.logger.Error("[Ramp.Get][GetRamp]", map[string]string{
				"error":     err.Error(),
				"sessionId": sessionID,
			})
		}
		c.JSON(statusOf(err), view.CreateResponse[any](nil, err, nil, "failed to get ramp"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any](state, nil, nil, ""))
}

// Recover godoc
// @Summary Recover a failed ramp
// @Description Clears a recoverable failure and resumes the flow at the phase that failed
// @id recoverRamp
// @Tags Ramp
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} model.RampState
// @Failure 404 {object} view.ErrorResponse
// @Failure 409 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /ramps/{sessionId}/recover [post]
func (h *handler) Recover(c *gin.Context) {
	sessionID := c.Param("sessionId")

	state, err := h.controller.RecoverRamp(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("[Ramp.Recover][RecoverRamp]", map[string]string{
			"error":     err.Error(),
			"sessionId": sessionID,
		})
		h.record("recover", "", "error")
		c.JSON(statusOf(err), view.CreateResponse[any](nil, err, nil, "failed to recover ramp"))
		return
	}

	h.record("recover", string(state.FlowType), "success")
	c.JSON(http.StatusOK, view.CreateResponse[any](state, nil, nil, ""))
}

// Abandon godoc
// @Summary Abandon a ramp
// @Description Stops the session's flow and clears its stored state
// @id abandonRamp
// @Tags Ramp
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} view.MessageResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /ramps/{sessionId} [delete]
func (h *handler) Abandon(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := h.controller.AbandonRamp(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("[Ramp.Abandon][AbandonRamp]", map[string]string{
			"error":     err.Error(),
			"sessionId": sessionID,
		})
		h.record("abandon", "", "error")
		c.JSON(statusOf(err), view.CreateResponse[any](nil, err, nil, "failed to abandon ramp"))
		return
	}

	h.record("abandon", "", "success")
	c.JSON(http.StatusOK, view.CreateResponse[any]("Ramp abandoned", nil, nil, ""))
}

// SubmitUserTransaction godoc
// @Summary Submit a user transaction
// @Description Records a transaction the user's wallet signed and broadcast for the flow
// @id submitUserTransaction
// @Tags Ramp
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body UserTransactionRequest true "Signed transaction"
// @Success 200 {object} view.MessageResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /ramps/{sessionId}/user-transactions [post]
func (h *handler) SubmitUserTransaction(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req UserTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("[Ramp.SubmitUserTransaction][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	err := validator.New().Struct(req)
	if err != nil {
		h.logger.Error("[Ramp.SubmitUserTransaction][Validator]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	err = h.controller.SubmitUserTransaction(c.Request.Context(), sessionID, req.params())
	if err != nil {
		h.logger.Error("[Ramp.SubmitUserTransaction][SubmitUserTransaction]", map[string]string{
			"error":     err.Error(),
			"sessionId": sessionID,
			"kind":      req.Kind,
		})
		c.JSON(statusOf(err), view.CreateResponse[any](nil, err, req, "failed to submit user transaction"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any]("User transaction recorded", nil, nil, ""))
}

func (h *handler) record(operation, flowType, status string) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordOperation(operation, flowType, status)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, controller.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, rampengine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rampengine.ErrActiveFlow), errors.Is(err, rampengine.ErrNotRecoverable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
