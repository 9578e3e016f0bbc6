// Package repository defines data access interfaces for openshelf.
// These interfaces abstract database operations, allowing for different
// implementations (SQLite for embedded deployments, PostgreSQL for larger
// ones, in-memory mocks for testing) while keeping the service layer clean.
package repository

import (
	"context"

	"github.com/openshelf/openshelf/internal/domain"
	"github.com/openshelf/openshelf/internal/query"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID. Soft-deleted users are still returned;
	// the auth chain decides how to treat them.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by lowercased email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by lowercased username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// =============================================================================
// Book Repository
// =============================================================================

// BookRepository defines the interface for book data access.
type BookRepository interface {
	// Create creates a new book.
	Create(ctx context.Context, book *domain.Book) error

	// GetByID retrieves a book by ID.
	GetByID(ctx context.Context, id int64) (*domain.Book, error)

	// List returns books matching the query plus the total matching count
	// (without pagination).
	List(ctx context.Context, q query.BookQuery) (*BookPage, error)

	// Update updates an existing book. AddedBy is never written.
	Update(ctx context.Context, book *domain.Book) error

	// Delete deletes a book by ID.
	Delete(ctx context.Context, id int64) error

	// DistinctGenres returns the distinct genre values present in the store.
	DistinctGenres(ctx context.Context) ([]string, error)
}

// BookPage is one page of a book listing.
type BookPage struct {
	// Books is the page of matching books.
	Books []*domain.Book

	// Total is the total number of matching books (without pagination).
	Total int64
}

// OwnerSummary is the subset of user fields embedded in book responses.
type OwnerSummary struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
