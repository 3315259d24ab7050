package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	skillUC "github.com/khoahotran/detasker/internal/application/usecase/skill"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

type SkillHandler struct {
	skillUseCase *skillUC.SkillUseCase
	logger       logger.Logger
}

func NewSkillHandler(uc *skillUC.SkillUseCase, log logger.Logger) *SkillHandler {
	return &SkillHandler{skillUseCase: uc, logger: log}
}

func (h *SkillHandler) CreateSkill(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	var req CreateSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	s, err := h.skillUseCase.ExecuteCreateSkill(c.Request.Context(), skillUC.CreateSkillInput{Caller: caller, Skill: req.ToDomain()})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ToSkillDTO(*s))
}

func (h *SkillHandler) GetSkill(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	s, err := h.skillUseCase.ExecuteGetSkill(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToSkillDTO(*s))
}

func (h *SkillHandler) ListByOwner(c *gin.Context) {
	owner, err := parseAddressParam(c, "address")
	if err != nil {
		c.Error(err)
		return
	}
	skills, err := h.skillUseCase.ExecuteListByOwner(c.Request.Context(), owner)
	if err != nil {
		c.Error(err)
		return
	}
	dtos := make([]SkillDTO, len(skills))
	for i, s := range skills {
		dtos[i] = ToSkillDTO(s)
	}
	c.JSON(http.StatusOK, dtos)
}

func (h *SkillHandler) Count(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.skillUseCase.Count()})
}
