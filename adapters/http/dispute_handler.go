package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	disputeUC "github.com/khoahotran/detasker/internal/application/usecase/dispute"
	"github.com/khoahotran/detasker/internal/domain/dispute"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

type DisputeHandler struct {
	disputeUseCase *disputeUC.DisputeUseCase
	logger         logger.Logger
}

func NewDisputeHandler(uc *disputeUC.DisputeUseCase, log logger.Logger) *DisputeHandler {
	return &DisputeHandler{disputeUseCase: uc, logger: log}
}

func (h *DisputeHandler) RaiseDispute(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	var req RaiseDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	d, err := h.disputeUseCase.ExecuteRaise(c.Request.Context(), disputeUC.RaiseDisputeInput{Caller: caller, JobID: jobID, Reason: req.Reason})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ToDisputeDTO(*d))
}

func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	var req ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	input := disputeUC.ResolveDisputeInput{
		Caller:  caller,
		JobID:   jobID,
		Outcome: dispute.Outcome{Kind: req.Outcome, Ratio: req.Ratio},
	}
	d, err := h.disputeUseCase.ExecuteResolve(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToDisputeDTO(*d))
}

func (h *DisputeHandler) ListDisputes(c *gin.Context) {
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	ds, err := h.disputeUseCase.ExecuteList(c.Request.Context(), jobID)
	if err != nil {
		c.Error(err)
		return
	}
	dtos := make([]DisputeDTO, len(ds))
	for i, d := range ds {
		dtos[i] = ToDisputeDTO(d)
	}
	c.JSON(http.StatusOK, dtos)
}

// GetBalance answers the caller's own net position in one token.
func (h *DisputeHandler) GetBalance(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	token, err := address.Parse(c.Param("token"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid token address", err))
		return
	}
	balance := h.disputeUseCase.ExecuteBalance(c.Request.Context(), caller, token)
	c.JSON(http.StatusOK, gin.H{"account": caller.String(), "token": token.String(), "balance": balance})
}
