package domain

import (
	"regexp"
	"strings"
	"time"
)

// Genres is the closed set of genres a book may belong to.
var Genres = []string{
	"Fiction",
	"Non-Fiction",
	"Fantasy",
	"Science Fiction",
	"Mystery",
	"Romance",
	"Thriller",
	"Biography",
	"History",
	"Self-Help",
	"Dystopian",
	"Adventure",
	"Horror",
	"Poetry",
	"Drama",
}

// DefaultCoverImageURL is used when no cover image was uploaded.
const DefaultCoverImageURL = "/placeholder.svg?height=400&width=300"

// Field length bounds for Book.
const (
	MaxTitleLen     = 200
	MaxAuthorLen    = 100
	MaxSynopsisLen  = 2000
	MaxPublisherLen = 100
	MaxPages        = 10000
)

// isbnPattern accepts ISBN-10 and ISBN-13, with or without separators.
var isbnPattern = regexp.MustCompile(`^(?:ISBN(?:-1[03])?:? )?[0-9Xx][-0-9Xx ]{8,16}$`)

// Book represents a catalog entry. Every book has exactly one owning user,
// set at creation and immutable thereafter.
type Book struct {
	// ID is the unique identifier for the book (auto-generated).
	ID int64 `json:"id"`

	Title  string `json:"title"`
	Author string `json:"author"`

	// Genre must be one of Genres.
	Genre string `json:"genre"`

	PublicationDate time.Time `json:"publicationDate"`

	// CoverImageURL points at the stored cover image.
	CoverImageURL string `json:"coverImageUrl"`

	// CoverKey is the asset-store key for the cover, empty when the
	// placeholder is in use. Needed to delete the asset with the book.
	CoverKey string `json:"-"`

	Synopsis  string  `json:"synopsis"`
	ISBN      *string `json:"isbn,omitempty"`
	Pages     *int    `json:"pages,omitempty"`
	Publisher string  `json:"publisher,omitempty"`
	Language  string  `json:"language"`

	// Rating is bounded to [0, 5].
	Rating float64 `json:"rating"`

	// AddedBy references the owning user. Immutable after creation.
	AddedBy int64 `json:"addedBy"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsValidGenre reports whether g belongs to the closed genre set.
func IsValidGenre(g string) bool {
	for _, genre := range Genres {
		if genre == g {
			return true
		}
	}
	return false
}

// Validate checks all field constraints. The first violation is returned
// as a *ValidationError carrying the offending field name.
func (b *Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return NewValidationError("title", "title is required")
	}
	if len(b.Title) > MaxTitleLen {
		return NewValidationError("title", "title cannot exceed 200 characters")
	}
	if strings.TrimSpace(b.Author) == "" {
		return NewValidationError("author", "author is required")
	}
	if len(b.Author) > MaxAuthorLen {
		return NewValidationError("author", "author name cannot exceed 100 characters")
	}
	if !IsValidGenre(b.Genre) {
		return NewValidationError("genre", "genre must be one of the supported genres")
	}
	if b.PublicationDate.IsZero() {
		return NewValidationError("publicationDate", "publication date is required")
	}
	if strings.TrimSpace(b.Synopsis) == "" {
		return NewValidationError("synopsis", "synopsis is required")
	}
	if len(b.Synopsis) > MaxSynopsisLen {
		return NewValidationError("synopsis", "synopsis cannot exceed 2000 characters")
	}
	if b.ISBN != nil && !isbnPattern.MatchString(*b.ISBN) {
		return NewValidationError("isbn", "invalid ISBN format")
	}
	if b.Pages != nil && (*b.Pages < 1 || *b.Pages > MaxPages) {
		return NewValidationError("pages", "pages must be between 1 and 10000")
	}
	if len(b.Publisher) > MaxPublisherLen {
		return NewValidationError("publisher", "publisher name cannot exceed 100 characters")
	}
	if b.Rating < 0 || b.Rating > 5 {
		return NewValidationError("rating", "rating must be between 0 and 5")
	}
	return nil
}

// NewBook creates a Book owned by the given user with defaults applied.
func NewBook(ownerID int64) *Book {
	now := time.Now().UTC()
	return &Book{
		CoverImageURL: DefaultCoverImageURL,
		Language:      "English",
		AddedBy:       ownerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
