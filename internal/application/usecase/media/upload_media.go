package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/application/service"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

type Kind string

const (
	KindJobDocument  Kind = "job_document"
	KindJobImage     Kind = "job_image"
	KindProfileImage Kind = "profile_image"
)

func (k Kind) Valid() bool {
	switch k {
	case KindJobDocument, KindJobImage, KindProfileImage:
		return true
	}
	return false
}

var tracer = otel.Tracer("media_usecase")

type UploadMediaUseCase struct {
	uploader service.Uploader
	logger   logger.Logger
}

func NewUploadMediaUseCase(u service.Uploader, log logger.Logger) *UploadMediaUseCase {
	return &UploadMediaUseCase{uploader: u, logger: log}
}

type UploadMediaInput struct {
	Caller address.Address
	Kind   Kind
	File   io.Reader
}

type UploadMediaOutput struct {
	URL      string
	PublicID string
}

func folderFor(caller address.Address, kind Kind) string {
	return fmt.Sprintf("detasker/%s/%s", strings.ToLower(caller.String()), kind)
}

func (uc *UploadMediaUseCase) Execute(ctx context.Context, input UploadMediaInput) (*UploadMediaOutput, error) {
	ctx, span := tracer.Start(ctx, "UploadMedia")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(input.Kind)))

	if !input.Kind.Valid() {
		err := apperror.NewInvalidInput(fmt.Sprintf("unknown media kind %q", input.Kind), nil)
		span.RecordError(err)
		return nil, err
	}
	if input.File == nil {
		err := apperror.NewInvalidInput("file is required", nil)
		span.RecordError(err)
		return nil, err
	}

	folder := folderFor(input.Caller, input.Kind)
	id := uuid.New().String()

	url, err := uc.uploader.Upload(ctx, input.File, folder, id)
	if err != nil {
		err = apperror.NewInternal("failed to upload media file", err)
		span.RecordError(err)
		return nil, err
	}

	publicID := folder + "/" + id
	uc.logger.Info("Media uploaded", zap.String("public_id", publicID), zap.String("owner", input.Caller.String()))
	return &UploadMediaOutput{URL: url, PublicID: publicID}, nil
}

type DeleteMediaInput struct {
	Caller   address.Address
	PublicID string
}

// ExecuteDelete removes an upload. Callers may only delete files under their own folder.
func (uc *UploadMediaUseCase) ExecuteDelete(ctx context.Context, input DeleteMediaInput) error {
	ctx, span := tracer.Start(ctx, "DeleteMedia")
	defer span.End()

	owned := "detasker/" + strings.ToLower(input.Caller.String()) + "/"
	if !strings.HasPrefix(input.PublicID, owned) || strings.Contains(input.PublicID, "..") {
		err := apperror.NewPermissionDenied("media does not belong to caller")
		span.RecordError(err)
		return err
	}
	if err := uc.uploader.Delete(ctx, input.PublicID); err != nil {
		err = apperror.NewInternal("failed to delete media file", err)
		span.RecordError(err)
		return err
	}
	uc.logger.Info("Media deleted", zap.String("public_id", input.PublicID))
	return nil
}
