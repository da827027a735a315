package textbooks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/logger"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/testfakes"
)

func newService() (*Service, *testfakes.Textbooks, *testfakes.Blobs) {
	repo := testfakes.NewTextbooks()
	blobs := testfakes.NewBlobs()
	return New(repo, blobs, 0, logger.Discard()), repo, blobs
}

func TestSetGdz(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	_, err := svc.SetGdz(ctx, 42, 7, "Алгебра", " https://gdz.ru/class-7/algebra/ ")
	require.NoError(t, err)

	_, err = svc.SetGdz(ctx, 42, 7, "Алгебра", "https://reshak.ru/algebra7")
	require.NoError(t, err)

	got, err := repo.GetGdz(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, "https://reshak.ru/algebra7", got.URL)

	list, err := svc.ListGdz(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteGdz(ctx, 42, 7))
	_, err = svc.Gdz(ctx, 42, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetGdz_RejectsBadLinks(t *testing.T) {
	svc, _, _ := newService()
	for _, link := range []string{"", "gdz.ru", "ftp://gdz.ru/file", "просто текст"} {
		_, err := svc.SetGdz(context.Background(), 42, 7, "Алгебра", link)
		assert.ErrorIs(t, err, domain.ErrValidation, link)
	}
}

func TestUploadBook(t *testing.T) {
	svc, repo, blobs := newService()
	ctx := context.Background()

	book, err := svc.UploadBook(ctx, 42, Upload{
		SubjectID:   7,
		SubjectName: "Алгебра",
		Filename:    "Учебник.PDF",
		Size:        4,
		Body:        strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	assert.Equal(t, "42/7/algebra.pdf", book.ObjectKey)
	assert.Equal(t, []byte("%PDF"), blobs.Objects["42/7/algebra.pdf"])

	_, err = svc.UploadBook(ctx, 42, Upload{
		SubjectID:   7,
		SubjectName: "Алгебра",
		Filename:    "scan.djvu",
		Size:        2,
		Body:        strings.NewReader("AT"),
	})
	require.NoError(t, err)
	assert.NotContains(t, blobs.Objects, "42/7/algebra.pdf")
	assert.Contains(t, blobs.Objects, "42/7/algebra.djvu")

	stored, err := repo.GetBook(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, "42/7/algebra.djvu", stored.ObjectKey)

	link, err := svc.BookURL(ctx, 42, 7)
	require.NoError(t, err)
	assert.Contains(t, link, "42/7/algebra.djvu")
	assert.Contains(t, link, time.Hour.String())

	require.NoError(t, svc.DeleteBook(ctx, 42, 7))
	assert.Empty(t, blobs.Objects)
	_, err = svc.BookURL(ctx, 42, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUploadBook_SizeLimit(t *testing.T) {
	svc, _, blobs := newService()
	_, err := svc.UploadBook(context.Background(), 42, Upload{SubjectID: 7, Filename: "big.pdf", Size: MaxBookSize + 1, Body: strings.NewReader("")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, blobs.Objects)
}
