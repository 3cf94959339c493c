package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type transportFeeService interface {
	List(ctx context.Context, schoolID string, active *bool) ([]models.TransportFee, error)
	Get(ctx context.Context, schoolID, id string) (*models.TransportFee, error)
	Create(ctx context.Context, schoolID string, req service.CreateTransportFeeRequest) (*models.TransportFee, error)
	Update(ctx context.Context, schoolID, id string, req service.UpdateTransportFeeRequest) (*models.TransportFee, error)
	Toggle(ctx context.Context, schoolID, id string) (*models.TransportFee, error)
	Delete(ctx context.Context, schoolID, id string) error
}

// TransportFeeHandler exposes per-location transport fees.
type TransportFeeHandler struct {
	fees transportFeeService
}

func NewTransportFeeHandler(fees transportFeeService) *TransportFeeHandler {
	return &TransportFeeHandler{fees: fees}
}

// List godoc
// @Summary List transport fees
// @Tags TransportFees
// @Produce json
// @Param active query bool false "Filter by active state"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /transport-fees [get]
func (h *TransportFeeHandler) List(c *gin.Context) {
	fees, err := h.fees.List(c.Request.Context(), schoolScope(c), boolQuery(c, "active"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fees, nil)
}

// Get godoc
// @Summary Get transport fee
// @Tags TransportFees
// @Produce json
// @Param id path string true "Transport fee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /transport-fees/{id} [get]
func (h *TransportFeeHandler) Get(c *gin.Context) {
	fee, err := h.fees.Get(c.Request.Context(), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Create godoc
// @Summary Create transport fee
// @Description annual_fee defaults to monthly_fee x 12
// @Tags TransportFees
// @Accept json
// @Produce json
// @Param payload body service.CreateTransportFeeRequest true "Transport fee"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /transport-fees [post]
func (h *TransportFeeHandler) Create(c *gin.Context) {
	var req service.CreateTransportFeeRequest
	if !bindJSON(c, &req, "invalid transport fee payload") {
		return
	}
	fee, err := h.fees.Create(c.Request.Context(), schoolScope(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// Update godoc
// @Summary Update transport fee
// @Tags TransportFees
// @Accept json
// @Produce json
// @Param id path string true "Transport fee ID"
// @Param payload body service.UpdateTransportFeeRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /transport-fees/{id} [put]
func (h *TransportFeeHandler) Update(c *gin.Context) {
	var req service.UpdateTransportFeeRequest
	if !bindJSON(c, &req, "invalid transport fee payload") {
		return
	}
	fee, err := h.fees.Update(c.Request.Context(), schoolScope(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Toggle godoc
// @Summary Flip is_active
// @Tags TransportFees
// @Produce json
// @Param id path string true "Transport fee ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /transport-fees/{id}/toggle [patch]
func (h *TransportFeeHandler) Toggle(c *gin.Context) {
	fee, err := h.fees.Toggle(c.Request.Context(), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Delete godoc
// @Summary Delete transport fee
// @Tags TransportFees
// @Param id path string true "Transport fee ID"
// @Success 204
// @Security BearerAuth
// @Router /transport-fees/{id} [delete]
func (h *TransportFeeHandler) Delete(c *gin.Context) {
	if err := h.fees.Delete(c.Request.Context(), schoolScope(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
