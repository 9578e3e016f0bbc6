package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/domain"
	"github.com/openshelf/openshelf/internal/query"
	"github.com/openshelf/openshelf/internal/repository"
	"github.com/openshelf/openshelf/internal/storage"
)

// BookService handles catalog operations.
type BookService struct {
	bookRepo repository.BookRepository
	userRepo repository.UserRepository
	covers   storage.CoverStore
	logger   zerolog.Logger
}

// NewBookService creates a new BookService.
func NewBookService(bookRepo repository.BookRepository, userRepo repository.UserRepository, covers storage.CoverStore, logger zerolog.Logger) *BookService {
	return &BookService{
		bookRepo: bookRepo,
		userRepo: userRepo,
		covers:   covers,
		logger:   logger.With().Str("service", "book").Logger(),
	}
}

// CoverUpload is an uploaded cover image.
type CoverUpload struct {
	ContentType string
	Reader      io.Reader
}

// BookInput contains the writable book fields.
type BookInput struct {
	Title           string
	Author          string
	Genre           string
	PublicationDate time.Time
	Synopsis        string
	ISBN            *string
	Pages           *int
	Publisher       string
	Language        string
	Rating          float64
}

// BookWithOwner pairs a book with its owner's public summary.
type BookWithOwner struct {
	*domain.Book
	Owner *repository.OwnerSummary `json:"owner,omitempty"`
}

// ListOutput is one page of the catalog listing.
type ListOutput struct {
	Books      []BookWithOwner
	Pagination query.Pagination
}

// Create adds a book owned by the authenticated user. When a cover upload
// is provided it is stored first; if persisting the book then fails the
// stored cover is removed again.
func (s *BookService) Create(ctx context.Context, identity *auth.Identity, input BookInput, cover *CoverUpload) (*BookWithOwner, error) {
	if identity == nil || identity.User == nil {
		return nil, auth.ErrAuthRequired
	}

	book := domain.NewBook(identity.User.ID)
	applyInput(book, input)

	if err := book.Validate(); err != nil {
		return nil, err
	}

	if cover != nil {
		key, url, err := s.covers.Put(ctx, cover.ContentType, cover.Reader)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedImageType) {
				return nil, domain.NewValidationError("coverImage", "unsupported image type")
			}
			s.logger.Error().Err(err).Msg("failed to store cover image")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		book.CoverKey = key
		book.CoverImageURL = url
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		s.removeCover(ctx, book.CoverKey)
		if errors.Is(err, domain.ErrISBNTaken) {
			return nil, domain.ErrISBNTaken
		}
		s.logger.Error().Err(err).Msg("failed to create book")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("book_id", book.ID).
		Int64("owner_id", book.AddedBy).
		Str("title", book.Title).
		Msg("book created")

	return s.withOwner(ctx, book), nil
}

// Get retrieves a single book with its owner summary.
func (s *BookService) Get(ctx context.Context, id int64) (*BookWithOwner, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return nil, domain.ErrBookNotFound
		}
		s.logger.Error().Err(err).Int64("book_id", id).Msg("failed to get book")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return s.withOwner(ctx, book), nil
}

// List returns a page of the catalog matching the query.
func (s *BookService) List(ctx context.Context, q query.BookQuery) (*ListOutput, error) {
	page, err := s.bookRepo.List(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list books")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// Owners repeat across a page; resolve each one once.
	owners := make(map[int64]*repository.OwnerSummary)
	books := make([]BookWithOwner, 0, len(page.Books))
	for _, book := range page.Books {
		owner, ok := owners[book.AddedBy]
		if !ok {
			owner = s.ownerSummary(ctx, book.AddedBy)
			owners[book.AddedBy] = owner
		}
		books = append(books, BookWithOwner{Book: book, Owner: owner})
	}

	return &ListOutput{
		Books:      books,
		Pagination: query.NewPagination(q, page.Total),
	}, nil
}

// Update modifies a book. The ownership guard runs after the load and
// before any mutation: a request that is both unauthorized and invalid
// fails on authorization.
func (s *BookService) Update(ctx context.Context, identity *auth.Identity, id int64, input BookInput, cover *CoverUpload) (*BookWithOwner, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return nil, domain.ErrBookNotFound
		}
		s.logger.Error().Err(err).Int64("book_id", id).Msg("failed to get book")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := auth.Authorize(identity, book.AddedBy); err != nil {
		return nil, err
	}

	applyInput(book, input)
	if err := book.Validate(); err != nil {
		return nil, err
	}

	oldKey := book.CoverKey
	if cover != nil {
		key, url, err := s.covers.Put(ctx, cover.ContentType, cover.Reader)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedImageType) {
				return nil, domain.NewValidationError("coverImage", "unsupported image type")
			}
			s.logger.Error().Err(err).Msg("failed to store cover image")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		book.CoverKey = key
		book.CoverImageURL = url
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		if cover != nil {
			s.removeCover(ctx, book.CoverKey)
		}
		if errors.Is(err, domain.ErrISBNTaken) {
			return nil, domain.ErrISBNTaken
		}
		s.logger.Error().Err(err).Int64("book_id", id).Msg("failed to update book")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if cover != nil && oldKey != "" {
		s.removeCover(ctx, oldKey)
	}

	s.logger.Info().
		Int64("book_id", book.ID).
		Int64("user_id", identity.User.ID).
		Msg("book updated")

	return s.withOwner(ctx, book), nil
}

// Delete removes a book and, best effort, its stored cover.
func (s *BookService) Delete(ctx context.Context, identity *auth.Identity, id int64) error {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return domain.ErrBookNotFound
		}
		s.logger.Error().Err(err).Int64("book_id", id).Msg("failed to get book")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := auth.Authorize(identity, book.AddedBy); err != nil {
		return err
	}

	if err := s.bookRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return domain.ErrBookNotFound
		}
		s.logger.Error().Err(err).Int64("book_id", id).Msg("failed to delete book")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.removeCover(ctx, book.CoverKey)

	s.logger.Info().
		Int64("book_id", id).
		Int64("user_id", identity.User.ID).
		Msg("book deleted")

	return nil
}

// Genres returns the distinct genres present in the catalog.
func (s *BookService) Genres(ctx context.Context) ([]string, error) {
	genres, err := s.bookRepo.DistinctGenres(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list genres")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if genres == nil {
		genres = []string{}
	}
	return genres, nil
}

// applyInput copies writable fields onto the book. AddedBy is never touched.
func applyInput(book *domain.Book, input BookInput) {
	book.Title = input.Title
	book.Author = input.Author
	book.Genre = input.Genre
	book.PublicationDate = input.PublicationDate
	book.Synopsis = input.Synopsis
	book.ISBN = input.ISBN
	book.Pages = input.Pages
	book.Publisher = input.Publisher
	if input.Language != "" {
		book.Language = input.Language
	}
	book.Rating = input.Rating
}

// withOwner attaches the owner summary to a book.
func (s *BookService) withOwner(ctx context.Context, book *domain.Book) *BookWithOwner {
	return &BookWithOwner{Book: book, Owner: s.ownerSummary(ctx, book.AddedBy)}
}

// ownerSummary resolves a user into the public summary embedded in book
// responses. Lookup failures degrade to a nil owner rather than failing
// the whole request.
func (s *BookService) ownerSummary(ctx context.Context, userID int64) *repository.OwnerSummary {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to resolve book owner")
		return nil
	}
	return &repository.OwnerSummary{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

// removeCover deletes a stored cover, logging failures only.
func (s *BookService) removeCover(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.covers.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("cover_key", key).Msg("failed to delete cover image")
	}
}
