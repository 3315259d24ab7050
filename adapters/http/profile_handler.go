package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	profileUC "github.com/khoahotran/detasker/internal/application/usecase/profile"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

type ProfileHandler struct {
	profileUseCase *profileUC.ProfileUseCase
	logger         logger.Logger
}

func NewProfileHandler(uc *profileUC.ProfileUseCase, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase: uc,
		logger:         log,
	}
}

func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}

	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	input := profileUC.CreateProfileInput{Caller: caller, Profile: req.ToDomain()}
	output, err := h.profileUseCase.ExecuteCreateProfile(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ToProfileDTO(output.Profile))
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	addr, err := parseAddressParam(c, "address")
	if err != nil {
		c.Error(err)
		return
	}

	input := profileUC.GetProfileInput{Address: addr}
	output, err := h.profileUseCase.ExecuteGetProfile(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	responseDTO := ToProfileDTO(output.Profile)
	c.JSON(http.StatusOK, responseDTO)
}

func (h *ProfileHandler) UpdateFreelancer(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}

	var req UpdateFreelancerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	input := profileUC.UpdateFreelancerInput{Caller: caller, Freelance: req.ToDomain()}
	output, err := h.profileUseCase.ExecuteUpdateFreelancer(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTO(output.Profile))
}

func (h *ProfileHandler) Counts(c *gin.Context) {
	counts := h.profileUseCase.ExecuteCounts(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"users":       counts.Users,
		"freelancers": counts.Freelancers,
		"ratings":     counts.Ratings,
		"owner":       counts.Owner.String(),
	})
}
