package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mediaUC "github.com/khoahotran/detasker/internal/application/usecase/media"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

type MediaHandler struct {
	uploadMediaUC *mediaUC.UploadMediaUseCase
	logger        logger.Logger
}

func NewMediaHandler(uploadUC *mediaUC.UploadMediaUseCase, log logger.Logger) *MediaHandler {
	return &MediaHandler{uploadMediaUC: uploadUC, logger: log}
}

func (h *MediaHandler) UploadMedia(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.Error(apperror.NewInvalidInput("'file' is required", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.NewInternal("failed to open file", err))
		return
	}
	defer file.Close()

	input := mediaUC.UploadMediaInput{
		Caller: caller,
		Kind:   mediaUC.Kind(c.DefaultPostForm("kind", string(mediaUC.KindJobDocument))),
		File:   file,
	}
	output, err := h.uploadMediaUC.Execute(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": output.URL, "public_id": output.PublicID})
}

func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	caller, ok := callerOrError(c)
	if !ok {
		return
	}
	publicID := c.Query("public_id")
	if publicID == "" {
		c.Error(apperror.NewInvalidInput("'public_id' is required", nil))
		return
	}

	if err := h.uploadMediaUC.ExecuteDelete(c.Request.Context(), mediaUC.DeleteMediaInput{Caller: caller, PublicID: publicID}); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
