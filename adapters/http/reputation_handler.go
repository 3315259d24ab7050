package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	reputationUC "github.com/khoahotran/detasker/internal/application/usecase/reputation"
	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

type ReputationHandler struct {
	giveFeedbackUseCase  *reputationUC.GiveFeedbackUseCase
	getReputationUseCase *reputationUC.GetReputationUseCase
	logger               logger.Logger
}

func NewReputationHandler(giveUC *reputationUC.GiveFeedbackUseCase, getUC *reputationUC.GetReputationUseCase, log logger.Logger) *ReputationHandler {
	return &ReputationHandler{
		giveFeedbackUseCase:  giveUC,
		getReputationUseCase: getUC,
		logger:               log,
	}
}

func (h *ReputationHandler) GiveFeedback(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}
	freelancer, err := address.Parse(req.Freelancer)
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid freelancer address", err))
		return
	}

	input := reputationUC.GiveFeedbackInput{
		Caller:     caller,
		Freelancer: freelancer,
		Rating:     rating.NewRating{JobID: jobID, Rating: req.Rating, Review: req.Review},
	}
	output, err := h.giveFeedbackUseCase.Execute(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"rating":     ToRatingDTO(output.Rating),
		"reputation": ToReputationDTO(output.Reputation),
	})
}

func (h *ReputationHandler) ListRatings(c *gin.Context) {
	freelancer, err := parseAddressParam(c, "address")
	if err != nil {
		c.Error(err)
		return
	}
	ratings := h.getReputationUseCase.ExecuteRatings(c.Request.Context(), freelancer)
	dtos := make([]RatingDTO, len(ratings))
	for i, r := range ratings {
		dtos[i] = ToRatingDTO(r)
	}
	c.JSON(http.StatusOK, dtos)
}

func (h *ReputationHandler) GetReputation(c *gin.Context) {
	freelancer, err := parseAddressParam(c, "address")
	if err != nil {
		c.Error(err)
		return
	}
	output, err := h.getReputationUseCase.Execute(c.Request.Context(), freelancer)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToReputationDTO(output.Reputation))
}

func (h *ReputationHandler) TopFreelancers(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)
	top, err := h.getReputationUseCase.ExecuteTop(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		return
	}
	dtos := make([]ReputationDTO, len(top))
	for i, r := range top {
		dtos[i] = ToReputationDTO(r)
	}
	c.JSON(http.StatusOK, dtos)
}
