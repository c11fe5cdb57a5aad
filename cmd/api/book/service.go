package book

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

// Repository is the storage capability every engine provides.
type Repository interface {
	Save(ctx context.Context, b Book) (Book, error)
	FindAll(ctx context.Context) ([]Book, error)
	FindByID(ctx context.Context, id int) (Optional, error)
	DeleteByID(ctx context.Context, id int) error
	FindByName(ctx context.Context, name string) ([]Book, error)
	FindByIsbn(ctx context.Context, isbn string) ([]Book, error)
	FindByNameAndIsbn(ctx context.Context, name, isbn string) ([]Book, error)
}

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateBook(ctx context.Context, b Book) (Book, error) {
	return s.repo.Save(ctx, b)
}

func (s *Service) ListBooks(ctx context.Context) ([]Book, error) {
	return s.repo.FindAll(ctx)
}

/* Looks up a book by ID. A missing ID is reported as an empty result. */
func (s *Service) GetBook(ctx context.Context, id *int) (Optional, error) {
	if id == nil {
		return Empty(), nil
	}
	return s.repo.FindByID(ctx, *id)
}

func (s *Service) DeleteBook(ctx context.Context, id int) error {
	return s.repo.DeleteByID(ctx, id)
}

/*
Overwrites an existing book with the entry values. When the entry ID is missing
or unknown nothing is stored and ErrBookNotFound is returned, so an update never
turns into a create.
*/
func (s *Service) UpdateBook(ctx context.Context, bookEntry Book) (Book, error) {
	found, err := s.GetBook(ctx, bookEntry.ID)
	if err != nil {
		return Book{}, fmt.Errorf("checking book existence: %w", err)
	}
	if !found.IsPresent() {
		return bookEntry, ErrBookNotFound
	}

	return s.repo.Save(ctx, bookEntry)
}

/* Picks exactly one lookup depending on which parameters were supplied. Order matters. */
func (s *Service) SearchBooks(ctx context.Context, q SearchQuery) ([]Book, error) {
	switch {
	case q.Name != nil && q.ISBN != nil:
		s.logger.Debug("search by name and isbn", zap.String("name", *q.Name), zap.String("isbn", *q.ISBN))
		return s.repo.FindByNameAndIsbn(ctx, *q.Name, *q.ISBN)
	case q.Name != nil:
		s.logger.Debug("search by name", zap.String("name", *q.Name))
		return s.repo.FindByName(ctx, *q.Name)
	case q.ISBN != nil:
		s.logger.Debug("search by isbn", zap.String("isbn", *q.ISBN))
		return s.repo.FindByIsbn(ctx, *q.ISBN)
	default:
		return s.repo.FindAll(ctx)
	}
}
