package textbooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/sanitize"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/validation"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/storage"
)

const (
	// MaxBookSize предел Bot API на скачивание файла
	MaxBookSize = 20 << 20
	// DefaultLinkTTL время жизни presigned ссылки
	DefaultLinkTTL = time.Hour
)

type Service struct {
	TextbookRepo repository.ITextbookRepo
	Blob         storage.IBlobStore
	LinkTTL      time.Duration
	Log          *slog.Logger
}

func New(textbookRepo repository.ITextbookRepo, blob storage.IBlobStore, linkTTL time.Duration, log *slog.Logger) *Service {
	if linkTTL <= 0 {
		linkTTL = DefaultLinkTTL
	}
	return &Service{
		TextbookRepo: textbookRepo,
		Blob:         blob,
		LinkTTL:      linkTTL,
		Log:          log,
	}
}

// SetGdz сохраняет ссылку на решебник, старая ссылка по предмету перезаписывается
func (s *Service) SetGdz(ctx context.Context, userID, subjectID int64, subjectName, link string) (*domain.Gdz, error) {
	gdz := &domain.Gdz{
		UserID:      userID,
		SubjectID:   subjectID,
		SubjectName: strings.TrimSpace(subjectName),
		URL:         strings.TrimSpace(link),
	}
	if err := validation.Struct(gdz); err != nil {
		return nil, err
	}
	if err := s.TextbookRepo.UpsertGdz(ctx, gdz); err != nil {
		return nil, fmt.Errorf("upsert gdz: %w", err)
	}
	return gdz, nil
}

func (s *Service) Gdz(ctx context.Context, userID, subjectID int64) (*domain.Gdz, error) {
	return s.TextbookRepo.GetGdz(ctx, userID, subjectID)
}

func (s *Service) ListGdz(ctx context.Context, userID int64) ([]domain.Gdz, error) {
	return s.TextbookRepo.ListGdz(ctx, userID)
}

func (s *Service) DeleteGdz(ctx context.Context, userID, subjectID int64) error {
	return s.TextbookRepo.DeleteGdz(ctx, userID, subjectID)
}

// Upload файл учебника от пользователя
type Upload struct {
	SubjectID   int64
	SubjectName string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadBook кладёт файл в хранилище под <user_id>/<subject_id>/<slug>.<ext>.
// Прежний файл с другим расширением удаляется
func (s *Service) UploadBook(ctx context.Context, userID int64, up Upload) (*domain.StudentBook, error) {
	if up.Size <= 0 || up.Size > MaxBookSize {
		return nil, fmt.Errorf("%w: book size %d out of range", domain.ErrValidation, up.Size)
	}

	key := sanitize.ObjectKey(userID, up.SubjectID, up.SubjectName, up.Filename)

	previous, err := s.TextbookRepo.GetBook(ctx, userID, up.SubjectID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get book: %w", err)
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.Blob.Put(ctx, key, up.Body, up.Size, contentType); err != nil {
		return nil, fmt.Errorf("put book: %w", err)
	}

	book := &domain.StudentBook{
		UserID:      userID,
		SubjectID:   up.SubjectID,
		SubjectName: up.SubjectName,
		ObjectKey:   key,
	}
	if err := s.TextbookRepo.UpsertBook(ctx, book); err != nil {
		return nil, fmt.Errorf("upsert book: %w", err)
	}

	if previous != nil && previous.ObjectKey != key {
		if err := s.Blob.Delete(ctx, previous.ObjectKey); err != nil {
			s.Log.Warn("failed to delete replaced book", "key", previous.ObjectKey, "error", err)
		}
	}

	s.Log.Info("book uploaded", "user_id", userID, "subject_id", up.SubjectID, "key", key)
	return book, nil
}

// BookURL временная ссылка на скачивание
func (s *Service) BookURL(ctx context.Context, userID, subjectID int64) (string, error) {
	book, err := s.TextbookRepo.GetBook(ctx, userID, subjectID)
	if err != nil {
		return "", err
	}
	return s.Blob.PresignedURL(ctx, book.ObjectKey, s.LinkTTL)
}

func (s *Service) DeleteBook(ctx context.Context, userID, subjectID int64) error {
	book, err := s.TextbookRepo.GetBook(ctx, userID, subjectID)
	if err != nil {
		return err
	}
	if err := s.Blob.Delete(ctx, book.ObjectKey); err != nil {
		return fmt.Errorf("delete book object: %w", err)
	}
	return s.TextbookRepo.DeleteBook(ctx, userID, subjectID)
}
