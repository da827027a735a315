package testfakes

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/storage"
)

type subjectKey struct {
	user    int64
	subject int64
}

// Textbooks ITextbookRepo и ICatalogRepo в памяти
type Textbooks struct {
	mu       sync.Mutex
	gdz      map[subjectKey]domain.Gdz
	books    map[subjectKey]domain.StudentBook
	Settings map[string]domain.SettingDefinition
	Upserts  int
}

func NewTextbooks() *Textbooks {
	return &Textbooks{
		gdz:      make(map[subjectKey]domain.Gdz),
		books:    make(map[subjectKey]domain.StudentBook),
		Settings: make(map[string]domain.SettingDefinition),
	}
}

func (r *Textbooks) UpsertGdz(ctx context.Context, gdz *domain.Gdz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gdz[subjectKey{gdz.UserID, gdz.SubjectID}] = *gdz
	return nil
}

func (r *Textbooks) GetGdz(ctx context.Context, userID, subjectID int64) (*domain.Gdz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gdz[subjectKey{userID, subjectID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &g, nil
}

func (r *Textbooks) ListGdz(ctx context.Context, userID int64) ([]domain.Gdz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Gdz
	for k, g := range r.gdz {
		if k.user == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *Textbooks) DeleteGdz(ctx context.Context, userID, subjectID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.gdz, subjectKey{userID, subjectID})
	return nil
}

func (r *Textbooks) UpsertBook(ctx context.Context, book *domain.StudentBook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[subjectKey{book.UserID, book.SubjectID}] = *book
	return nil
}

func (r *Textbooks) GetBook(ctx context.Context, userID, subjectID int64) (*domain.StudentBook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[subjectKey{userID, subjectID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (r *Textbooks) DeleteBook(ctx context.Context, userID, subjectID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.books, subjectKey{userID, subjectID})
	return nil
}

func (r *Textbooks) UpsertSettingDefinition(ctx context.Context, def *domain.SettingDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Settings[def.Key] = *def
	r.Upserts++
	return nil
}

func (r *Textbooks) ListSettingDefinitions(ctx context.Context) ([]domain.SettingDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SettingDefinition, 0, len(r.Settings))
	for _, d := range r.Settings {
		out = append(out, d)
	}
	return out, nil
}

// Blobs объектное хранилище в памяти
type Blobs struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

func NewBlobs() *Blobs {
	return &Blobs{Objects: make(map[string][]byte)}
}

func (b *Blobs) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Objects[key] = data
	return nil
}

func (b *Blobs) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.Objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Blobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Objects, key)
	return nil
}

func (b *Blobs) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://blobs.local/" + key + "?ttl=" + ttl.String(), nil
}

var (
	_ repository.ITextbookRepo = (*Textbooks)(nil)
	_ repository.ICatalogRepo  = (*Textbooks)(nil)
	_ storage.IBlobStore       = (*Blobs)(nil)
)
