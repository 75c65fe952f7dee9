package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/andresuchdata/premium-allocation/internal/service"
	"github.com/andresuchdata/premium-allocation/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type PremiumHandler struct {
	service *service.PremiumService
}

func NewPremiumHandler(service *service.PremiumService) *PremiumHandler {
	return &PremiumHandler{service: service}
}

type createSessionRequest struct {
	Target *float64 `json:"target"`
}

type policyRequest struct {
	Policy string `json:"policy" binding:"required"`
}

type targetRequest struct {
	Target *float64 `json:"target" binding:"required"`
}

type allocationRequest struct {
	Edits []domain.AllocationEdit `json:"edits" binding:"required,dive"`
}

type simulationRequest struct {
	Seed             *uint64 `json:"seed"`
	IncludeCustomers bool    `json:"include_customers"`
}

type batchRequest struct {
	Seeds []uint64 `json:"seeds"`
	Runs  int      `json:"runs"`
}

type sessionResponse struct {
	session.Session
	View domain.AllocationView `json:"view"`
}

func newSessionResponse(s session.Session) sessionResponse {
	return sessionResponse{Session: s, View: s.View()}
}

// GetSummary returns the baseline portfolio, region overview and distribution
func (h *PremiumHandler) GetSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Summary(c.Request.Context()))
}

// GetRegions returns the region reference table
func (h *PremiumHandler) GetRegions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.Regions(c.Request.Context())})
}

func (h *PremiumHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	sess, err := h.service.CreateSession(c.Request.Context(), req.Target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionResponse(sess))
}

func (h *PremiumHandler) GetSession(c *gin.Context) {
	sess, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

func (h *PremiumHandler) DeleteSession(c *gin.Context) {
	if err := h.service.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPolicy selects an allocation policy for the session
func (h *PremiumHandler) SetPolicy(c *gin.Context) {
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.service.ApplyPolicy(c.Request.Context(), c.Param("id"), req.Policy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PremiumHandler) SetTarget(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.service.SetTarget(c.Request.Context(), c.Param("id"), *req.Target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// EditAllocation applies manual amounts. Any invalid entry rejects the whole request.
func (h *PremiumHandler) EditAllocation(c *gin.Context) {
	var req allocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.service.EditAllocation(c.Request.Context(), c.Param("id"), req.Edits)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PremiumHandler) GetMetrics(c *gin.Context) {
	report, err := h.service.Metrics(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *PremiumHandler) Simulate(c *gin.Context) {
	var req simulationRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.service.Simulate(c.Request.Context(), c.Param("id"), req.Seed, req.IncludeCustomers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PremiumHandler) SimulateBatch(c *gin.Context) {
	var req batchRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.service.SimulateBatch(c.Request.Context(), c.Param("id"), req.Seeds, req.Runs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return false
	}
	return true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
}

func respondError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, domain.ErrInvalidInput.Error()
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, domain.ErrSessionNotFound.Error()
	case errors.Is(err, domain.ErrAllocationMismatch):
		return http.StatusConflict, domain.ErrAllocationMismatch.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
