package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	jobUC "github.com/khoahotran/detasker/internal/application/usecase/job"
	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

type JobHandler struct {
	createJobUseCase   *jobUC.CreateJobUseCase
	publishJobUseCase  *jobUC.PublishJobUseCase
	assignJobUseCase   *jobUC.AssignJobUseCase
	completeJobUseCase *jobUC.CompleteJobUseCase
	deleteJobUseCase   *jobUC.DeleteJobUseCase
	settleJobUseCase   *jobUC.SettleJobUseCase
	getJobUseCase      *jobUC.GetJobUseCase
	listJobsUseCase    *jobUC.ListJobsUseCase
	logger             logger.Logger
}

func NewJobHandler(
	createUC *jobUC.CreateJobUseCase,
	publishUC *jobUC.PublishJobUseCase,
	assignUC *jobUC.AssignJobUseCase,
	completeUC *jobUC.CompleteJobUseCase,
	deleteUC *jobUC.DeleteJobUseCase,
	settleUC *jobUC.SettleJobUseCase,
	getUC *jobUC.GetJobUseCase,
	listUC *jobUC.ListJobsUseCase,
	log logger.Logger,
) *JobHandler {
	return &JobHandler{
		createJobUseCase:   createUC,
		publishJobUseCase:  publishUC,
		assignJobUseCase:   assignUC,
		completeJobUseCase: completeUC,
		deleteJobUseCase:   deleteUC,
		settleJobUseCase:   settleUC,
		getJobUseCase:      getUC,
		listJobsUseCase:    listUC,
		logger:             log,
	}
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}
	draft, err := req.ToDomain()
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.createJobUseCase.Execute(c.Request.Context(), jobUC.CreateJobInput{Caller: caller, Draft: draft})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ToJobDTO(output.Job))
}

func (h *JobHandler) PublishJob(c *gin.Context) {
	h.runAction(c, h.publishJobUseCase.Execute)
}

func (h *JobHandler) SettleJob(c *gin.Context) {
	h.runAction(c, h.settleJobUseCase.Execute)
}

func (h *JobHandler) runAction(c *gin.Context, exec func(ctx context.Context, in jobUC.JobActionInput) (*jobUC.JobActionOutput, error)) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	output, err := exec(c.Request.Context(), jobUC.JobActionInput{Caller: caller, JobID: jobID})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToJobDTO(output.Job))
}

func (h *JobHandler) AssignJob(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	var req AssignJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}
	freelancer, err := address.Parse(req.Freelancer)
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid freelancer address", err))
		return
	}

	input := jobUC.AssignJobInput{Caller: caller, Freelancer: freelancer, JobID: jobID}
	output, err := h.assignJobUseCase.Execute(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToJobDTO(output.Job))
}

func (h *JobHandler) CompleteJob(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	var req CompleteJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	input := jobUC.CompleteJobInput{Caller: caller, JobID: jobID, Funds: req.Funds}
	output, err := h.completeJobUseCase.Execute(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToJobDTO(output.Job))
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	input := jobUC.JobActionInput{Caller: caller, JobID: jobID}
	if err := h.deleteJobUseCase.Execute(c.Request.Context(), input); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	includeMovements, _ := strconv.ParseBool(c.DefaultQuery("movements", "false"))

	output, err := h.getJobUseCase.Execute(c.Request.Context(), jobUC.GetJobInput{JobID: jobID, IncludeMovements: includeMovements})
	if err != nil {
		c.Error(err)
		return
	}
	dto := ToJobDTO(output.Job)
	dto.ConfirmationDeadline = output.Deadline
	for _, m := range output.Movements {
		dto.Movements = append(dto.Movements, ToMovementDTO(m))
	}
	c.JSON(http.StatusOK, dto)
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	input := jobUC.ListJobsInput{
		Tag:    c.Query("tag"),
		Status: job.Status(c.Query("status")),
		Page:   page,
		Limit:  limit,
	}
	if raw := c.Query("owner"); raw != "" {
		owner, err := address.Parse(raw)
		if err != nil {
			c.Error(apperror.NewInvalidInput("invalid owner address", err))
			return
		}
		input.Owner = &owner
	}
	if raw := c.Query("published"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			c.Error(apperror.NewInvalidInput("invalid published flag", err))
			return
		}
		input.Published = &published
	}

	output, err := h.listJobsUseCase.Execute(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	dtos := make([]JobDTO, len(output.Jobs))
	for i, j := range output.Jobs {
		dtos[i] = ToJobDTO(j)
	}
	c.JSON(http.StatusOK, JobListDTO{Jobs: dtos, Total: output.Total, Page: output.Page, Limit: output.Limit})
}

func (h *JobHandler) Counts(c *gin.Context) {
	counts := h.getJobUseCase.Counts()
	c.JSON(http.StatusOK, gin.H{"jobs": counts.Jobs, "tags": counts.Tags})
}

func (h *JobHandler) ConfirmationWindow(c *gin.Context) {
	w := h.getJobUseCase.ConfirmationWindow()
	c.JSON(http.StatusOK, gin.H{"seconds": w.Seconds, "effective_seconds": w.EffectiveSeconds})
}
