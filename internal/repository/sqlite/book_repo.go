package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/domain"
	"github.com/openshelf/openshelf/internal/query"
	"github.com/openshelf/openshelf/internal/repository"
)

// bookRepository implements repository.BookRepository for SQLite.
type bookRepository struct {
	db *DB
}

// NewBookRepository creates a new SQLite book repository.
func NewBookRepository(db *DB) repository.BookRepository {
	return &bookRepository{db: db}
}

const bookColumns = `id, title, author, genre, publication_date, cover_image_url, cover_key, synopsis, isbn, pages, publisher, language, rating, added_by, created_at, updated_at`

// Create creates a new book.
func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	q := `
		INSERT INTO books (title, author, genre, publication_date, cover_image_url, cover_key, synopsis, isbn, pages, publisher, language, rating, added_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, q,
		book.Title,
		book.Author,
		book.Genre,
		book.PublicationDate.Format(time.RFC3339),
		book.CoverImageURL,
		book.CoverKey,
		book.Synopsis,
		book.ISBN,
		book.Pages,
		book.Publisher,
		book.Language,
		book.Rating,
		book.AddedBy,
		book.CreatedAt.Format(time.RFC3339),
		book.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrISBNTaken
		}
		return fmt.Errorf("failed to create book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	book.ID = id

	return nil
}

// GetByID retrieves a book by ID.
func (r *bookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = ?`

	row := r.db.QueryRowContext(ctx, q, id)
	book, err := scanBook(row.Scan)
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
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	order := "ASC"
	if bq.SortDesc {
		order = "DESC"
	}

	// SortColumn always comes from the query package's allow-list, never
	// from raw request input.
	listQuery := fmt.Sprintf(
		`SELECT %s FROM books%s ORDER BY %s %s LIMIT ? OFFSET ?`,
		bookColumns, where, bq.SortColumn, order,
	)
	listArgs := append(append([]interface{}{}, args...), bq.Limit, bq.Offset())

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBook(rows.Scan)
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
		SET title = ?, author = ?, genre = ?, publication_date = ?, cover_image_url = ?,
			cover_key = ?, synopsis = ?, isbn = ?, pages = ?, publisher = ?, language = ?,
			rating = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, q,
		book.Title,
		book.Author,
		book.Genre,
		book.PublicationDate.Format(time.RFC3339),
		book.CoverImageURL,
		book.CoverKey,
		book.Synopsis,
		book.ISBN,
		book.Pages,
		book.Publisher,
		book.Language,
		book.Rating,
		book.UpdatedAt.Format(time.RFC3339),
		book.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrISBNTaken
		}
		return fmt.Errorf("failed to update book: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// Delete deletes a book by ID.
func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// DistinctGenres returns the distinct genre values present in the store.
func (r *bookRepository) DistinctGenres(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT genre FROM books ORDER BY genre`)
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

	if bq.Search != "" {
		conditions = append(conditions,
			`(title LIKE ? COLLATE NOCASE OR author LIKE ? COLLATE NOCASE OR synopsis LIKE ? COLLATE NOCASE)`)
		pattern := "%" + bq.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if bq.Genre != "" {
		conditions = append(conditions, `genre = ?`)
		args = append(args, bq.Genre)
	}
	if bq.Author != "" {
		conditions = append(conditions, `author LIKE ? COLLATE NOCASE`)
		args = append(args, "%"+bq.Author+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// scanBook scans a book row via the given scan function.
func scanBook(scan func(dest ...interface{}) error) (*domain.Book, error) {
	book := &domain.Book{}
	var publicationDate, createdAt, updatedAt string
	var isbn sql.NullString
	var pages sql.NullInt64

	err := scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Genre,
		&publicationDate,
		&book.CoverImageURL,
		&book.CoverKey,
		&book.Synopsis,
		&isbn,
		&pages,
		&book.Publisher,
		&book.Language,
		&book.Rating,
		&book.AddedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if isbn.Valid {
		book.ISBN = &isbn.String
	}
	if pages.Valid {
		p := int(pages.Int64)
		book.Pages = &p
	}
	book.PublicationDate, _ = time.Parse(time.RFC3339, publicationDate)
	book.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	book.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return book, nil
}

// Ensure bookRepository implements repository.BookRepository.
var _ repository.BookRepository = (*bookRepository)(nil)
