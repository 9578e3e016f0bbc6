package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/domain"
	"github.com/openshelf/openshelf/internal/query"
	"github.com/openshelf/openshelf/internal/repository"
)

// bookRepository implements repository.BookRepository for PostgreSQL.
type bookRepository struct {
	db *DB
}

// NewBookRepository creates a new PostgreSQL book repository.
func NewBookRepository(db *DB) repository.BookRepository {
	return &bookRepository{db: db}
}

const bookColumns = `id, title, author, genre, publication_date, cover_image_url, cover_key, synopsis, isbn, pages, publisher, language, rating, added_by, created_at, updated_at`

// Create creates a new book.
func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	q := `
		INSERT INTO books (title, author, genre, publication_date, cover_image_url, cover_key, synopsis, isbn, pages, publisher, language, rating, added_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, q,
		book.Title,
		book.Author,
		book.Genre,
		book.PublicationDate,
		book.CoverImageURL,
		book.CoverKey,
		book.Synopsis,
		book.ISBN,
		book.Pages,
		book.Publisher,
		book.Language,
		book.Rating,
		book.AddedBy,
		book.CreatedAt,
		book.UpdatedAt,
	).Scan(&book.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrISBNTaken
		}
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

// GetByID retrieves a book by ID.
func (r *bookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	book := &domain.Book{}
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Genre,
		&book.PublicationDate,
		&book.CoverImageURL,
		&book.CoverKey,
		&book.Synopsis,
		&book.ISBN,
		&book.Pages,
		&book.Publisher,
		&book.Language,
		&book.Rating,
		&book.AddedBy,
		&book.CreatedAt,
		&book.UpdatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book by ID: %w", err)
	}

	return book, nil
}

// List returns books matching the query plus the total matching count.
func (r *bookRepository) List(ctx context.Context, bq query.BookQuery) (*repository.BookPage, error) {
	where, args := buildBookFilter(bq)

	countQuery := `SELECT COUNT(*) FROM books` + where
	var total int64
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	order := "ASC"
	if bq.SortDesc {
		order = "DESC"
	}

	// SortColumn always comes from the query package's allow-list, never
	// from raw request input.
	listQuery := fmt.Sprintf(
		`SELECT %s FROM books%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		bookColumns, where, bq.SortColumn, order, len(args)+1, len(args)+2,
	)
	listArgs := append(append([]interface{}{}, args...), bq.Limit, bq.Offset())

	rows, err := r.db.Pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book := &domain.Book{}
		err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Author,
			&book.Genre,
			&book.PublicationDate,
			&book.CoverImageURL,
			&book.CoverKey,
			&book.Synopsis,
			&book.ISBN,
			&book.Pages,
			&book.Publisher,
			&book.Language,
			&book.Rating,
			&book.AddedBy,
			&book.CreatedAt,
			&book.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return &repository.BookPage{
		Books: books,
		Total: total,
	}, nil
}

// Update updates an existing book. AddedBy is never written.
func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	book.UpdatedAt = time.Now().UTC()

	q := `
		UPDATE books
		SET title = $1, author = $2, genre = $3, publication_date = $4, cover_image_url = $5,
			cover_key = $6, synopsis = $7, isbn = $8, pages = $9, publisher = $10, language = $11,
			rating = $12, updated_at = $13
		WHERE id = $14
	`

	tag, err := r.db.Pool.Exec(ctx, q,
		book.Title,
		book.Author,
		book.Genre,
		book.PublicationDate,
		book.CoverImageURL,
		book.CoverKey,
		book.Synopsis,
		book.ISBN,
		book.Pages,
		book.Publisher,
		book.Language,
		book.Rating,
		book.UpdatedAt,
		book.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrISBNTaken
		}
		return fmt.Errorf("failed to update book: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// Delete deletes a book by ID.
func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// DistinctGenres returns the distinct genre values present in the store.
func (r *bookRepository) DistinctGenres(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT DISTINCT genre FROM books ORDER BY genre`)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var genre string
		if err := rows.Scan(&genre); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, genre)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating genres: %w", err)
	}

	return genres, nil
}

// buildBookFilter translates a BookQuery into a WHERE clause and arguments.
func buildBookFilter(bq query.BookQuery) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	next := func() int { return len(args) + 1 }

	if bq.Search != "" {
		pattern := "%" + bq.Search + "%"
		conditions = append(conditions, fmt.Sprintf(
			`(title ILIKE $%d OR author ILIKE $%d OR synopsis ILIKE $%d)`,
			next(), next()+1, next()+2,
		))
		args = append(args, pattern, pattern, pattern)
	}
	if bq.Genre != "" {
		conditions = append(conditions, fmt.Sprintf(`genre = $%d`, next()))
		args = append(args, bq.Genre)
	}
	if bq.Author != "" {
		conditions = append(conditions, fmt.Sprintf(`author ILIKE $%d`, next()))
		args = append(args, "%"+bq.Author+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Ensure bookRepository implements repository.BookRepository.
var _ repository.BookRepository = (*bookRepository)(nil)
