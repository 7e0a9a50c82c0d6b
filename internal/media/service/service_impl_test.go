package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/healx/internal/clock"
	mediadomain "github.com/smallbiznis/healx/internal/media/domain"
	"github.com/smallbiznis/healx/internal/providers/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockSigner struct {
	mock.Mock
}

func (m *mockSigner) SignUpload(ctx context.Context, req storage.SignRequest) (storage.SignedUpload, error) {
	args := m.Called(req)
	return args.Get(0).(storage.SignedUpload), args.Error(1)
}

func (m *mockSigner) Bucket() string { return "healx-media" }

func setupMedia(t *testing.T, signer storage.Signer) (mediadomain.Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&mediadomain.MediaFile{}))

	return New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)),
		Signer: signer,
	}), db
}

func TestIssueUploadURLSignsAndRecords(t *testing.T) {
	signer := new(mockSigner)
	signer.On("SignUpload", storage.SignRequest{
		ObjectKey:   "users/user-1/uploads/blood-panel-march.pdf",
		ContentType: "application/pdf",
	}).Return(storage.SignedUpload{URL: "https://storage.googleapis.com/signed", Bucket: "healx-media"}, nil).Once()

	svc, db := setupMedia(t, signer)
	res, err := svc.IssueUploadURL(context.Background(), "user-1", mediadomain.UploadRequest{
		Filename:    "Blood Panel March.PDF",
		FileType:    mediadomain.FileCategoryLabReport,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/signed", res.UploadURL)
	assert.Equal(t, "users/user-1/uploads/blood-panel-march.pdf", res.FilePath)
	assert.Empty(t, res.Note)
	signer.AssertExpectations(t)

	var stored mediadomain.MediaFile
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, "healx-media", stored.Bucket)
	assert.Equal(t, res.FilePath, stored.ObjectKey)
	assert.Equal(t, mediadomain.FileCategoryLabReport, stored.Category)
	assert.False(t, stored.IsProcessed)
}

func TestIssueUploadURLLocalFallback(t *testing.T) {
	svc, _ := setupMedia(t, storage.NewLocalSigner(nil))

	res, err := svc.IssueUploadURL(context.Background(), "user-1", mediadomain.UploadRequest{
		Filename:    "knee.mp4",
		FileType:    mediadomain.FileCategoryFunctionalTestVideo,
		ContentType: "video/mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.FallbackUploadURL, res.UploadURL)
	assert.Equal(t, "storage bucket not configured", res.Note)
}

func TestIssueUploadURLValidation(t *testing.T) {
	svc, _ := setupMedia(t, storage.NewLocalSigner(nil))
	ctx := context.Background()
	valid := mediadomain.UploadRequest{Filename: "scan.png", FileType: mediadomain.FileCategoryScan, ContentType: "image/png"}

	_, err := svc.IssueUploadURL(ctx, " ", valid)
	assert.ErrorIs(t, err, mediadomain.ErrInvalidUser)

	req := valid
	req.FileType = "Selfie"
	_, err = svc.IssueUploadURL(ctx, "user-1", req)
	assert.ErrorIs(t, err, mediadomain.ErrInvalidFileType)

	req = valid
	req.ContentType = ""
	_, err = svc.IssueUploadURL(ctx, "user-1", req)
	assert.ErrorIs(t, err, mediadomain.ErrInvalidContentType)

	req = valid
	req.Filename = "../"
	_, err = svc.IssueUploadURL(ctx, "user-1", req)
	assert.ErrorIs(t, err, mediadomain.ErrInvalidFilename)

	req = valid
	req.Filename = strings.Repeat("a", 300) + ".png"
	_, err = svc.IssueUploadURL(ctx, "user-1", req)
	assert.ErrorIs(t, err, mediadomain.ErrInvalidFilename)
}

func TestIssueUploadURLSignerFailure(t *testing.T) {
	signer := new(mockSigner)
	signer.On("SignUpload", mock.Anything).Return(storage.SignedUpload{}, errors.New("no private key")).Once()

	svc, db := setupMedia(t, signer)
	_, err := svc.IssueUploadURL(context.Background(), "user-1", mediadomain.UploadRequest{
		Filename: "note.m4a", FileType: mediadomain.FileCategoryAudioNote, ContentType: "audio/mp4",
	})
	assert.ErrorIs(t, err, mediadomain.ErrUploadURLFailed)

	var count int64
	require.NoError(t, db.Model(&mediadomain.MediaFile{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestObjectKeyStaysUnderUserPrefix(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":   "users/u_2f1/uploads/passwd",
		`C:\temp\Result.JPG`: "users/u_2f1/uploads/result.jpg",
		"archive.tar.gz":     "users/u_2f1/uploads/archive-tar.gz",
		"weird.p$f":          "users/u_2f1/uploads/weird",
	}
	for in, want := range cases {
		got, ok := objectKey("u/1", in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := objectKey("u", "...")
	assert.False(t, ok)
}

func TestObjectKeyUserSegmentIsInjective(t *testing.T) {
	pipe, _ := objectKey("auth0|42", "lab.pdf")
	under, _ := objectKey("auth0_42", "lab.pdf")
	assert.NotEqual(t, pipe, under)
	assert.Equal(t, "users/auth0_7c42/uploads/lab.pdf", pipe)
	assert.Equal(t, "users/auth0_5f42/uploads/lab.pdf", under)

	a, _ := objectKey("a|b", "lab.pdf")
	b, _ := objectKey("a_b", "lab.pdf")
	assert.NotEqual(t, a, b)

	email, _ := objectKey("jane.doe@example.com", "lab.pdf")
	assert.Equal(t, "users/jane_2edoe_40example_2ecom/uploads/lab.pdf", email)

	plain, _ := objectKey("user-1", "lab.pdf")
	assert.Equal(t, "users/user-1/uploads/lab.pdf", plain)
}
