package service

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/healx/internal/clock"
	mediadomain "github.com/smallbiznis/healx/internal/media/domain"
	"github.com/smallbiznis/healx/internal/providers/storage"
	"github.com/smallbiznis/healx/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxFilenameLength = 255

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Signer storage.Signer
}

type Service struct {
	log    *zap.Logger
	clock  clock.Clock
	signer storage.Signer
	files  repository.Repository[mediadomain.MediaFile]
}

func New(p Params) mediadomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:    p.Log.Named("media.service"),
		clock:  clk,
		signer: p.Signer,
		files:  repository.ProvideStore[mediadomain.MediaFile](p.DB),
	}
}

func (s *Service) IssueUploadURL(ctx context.Context, userID string, req mediadomain.UploadRequest) (*mediadomain.UploadURL, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, mediadomain.ErrInvalidUser
	}
	if !req.FileType.Valid() {
		return nil, mediadomain.ErrInvalidFileType
	}

	contentType := strings.TrimSpace(req.ContentType)
	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		return nil, mediadomain.ErrInvalidContentType
	}

	key, ok := objectKey(userID, req.Filename)
	if !ok || len(req.Filename) > maxFilenameLength {
		return nil, mediadomain.ErrInvalidFilename
	}

	signed, err := s.signer.SignUpload(ctx, storage.SignRequest{
		ObjectKey:   key,
		ContentType: contentType,
	})
	if err != nil {
		s.log.Error("failed to sign upload url", zap.String("object_key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", mediadomain.ErrUploadURLFailed, err)
	}

	file := &mediadomain.MediaFile{
		ID:         uuid.New(),
		UserID:     userID,
		Category:   req.FileType,
		Bucket:     signed.Bucket,
		ObjectKey:  key,
		Filename:   strings.TrimSpace(req.Filename),
		MimeType:   contentType,
		UploadedAt: s.clock.Now(),
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	return &mediadomain.UploadURL{
		UploadURL: signed.URL,
		FilePath:  key,
		Note:      signed.Note,
	}, nil
}
