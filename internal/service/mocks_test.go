package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/domain"
	"github.com/openshelf/openshelf/internal/query"
	"github.com/openshelf/openshelf/internal/repository"
)

// MockUserRepository is an in-memory repository.UserRepository.
type MockUserRepository struct {
	users  map[int64]*domain.User
	nextID int64

	createErr error
	getErr    error
	updateErr error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[int64]*domain.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	username = strings.ToLower(username)
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if err == domain.ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.GetByUsername(ctx, username)
	if err == domain.ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

// MockBookRepository is an in-memory repository.BookRepository honoring the
// BookQuery filter semantics.
type MockBookRepository struct {
	books  map[int64]*domain.Book
	nextID int64

	createErr error
	listErr   error
	deleteErr error
}

func NewMockBookRepository() *MockBookRepository {
	return &MockBookRepository{
		books:  make(map[int64]*domain.Book),
		nextID: 1,
	}
}

func (m *MockBookRepository) Create(ctx context.Context, book *domain.Book) error {
	if m.createErr != nil {
		return m.createErr
	}
	if book.ISBN != nil {
		for _, b := range m.books {
			if b.ISBN != nil && *b.ISBN == *book.ISBN {
				return domain.ErrISBNTaken
			}
		}
	}
	book.ID = m.nextID
	m.nextID++
	m.books[book.ID] = book
	return nil
}

func (m *MockBookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	b, ok := m.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *MockBookRepository) List(ctx context.Context, q query.BookQuery) (*repository.BookPage, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}

	var matched []*domain.Book
	for _, b := range m.books {
		if q.Genre != "" && b.Genre != q.Genre {
			continue
		}
		if q.Search != "" && !matchesSearch(b, q.Search) {
			continue
		}
		if q.Author != "" && !strings.Contains(strings.ToLower(b.Author), strings.ToLower(q.Author)) {
			continue
		}
		copied := *b
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		if q.SortDesc {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	start := q.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}

	return &repository.BookPage{Books: matched[start:end], Total: total}, nil
}

func matchesSearch(b *domain.Book, search string) bool {
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(b.Title), search) ||
		strings.Contains(strings.ToLower(b.Author), search) ||
		strings.Contains(strings.ToLower(b.Synopsis), search)
}

func (m *MockBookRepository) Update(ctx context.Context, book *domain.Book) error {
	existing, ok := m.books[book.ID]
	if !ok {
		return domain.ErrBookNotFound
	}
	copied := *book
	copied.AddedBy = existing.AddedBy
	m.books[book.ID] = &copied
	return nil
}

func (m *MockBookRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.books[id]; !ok {
		return domain.ErrBookNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *MockBookRepository) DistinctGenres(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var genres []string
	for _, b := range m.books {
		if !seen[b.Genre] {
			seen[b.Genre] = true
			genres = append(genres, b.Genre)
		}
	}
	sort.Strings(genres)
	return genres, nil
}

// MockCoverStore records puts and deletes.
type MockCoverStore struct {
	puts    int
	deleted []string
	putErr  error
}

func (m *MockCoverStore) Put(ctx context.Context, contentType string, r io.Reader) (string, string, error) {
	if m.putErr != nil {
		return "", "", m.putErr
	}
	m.puts++
	key := fmt.Sprintf("cover-%d.jpg", m.puts)
	return key, "/covers/" + key, nil
}

func (m *MockCoverStore) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

// seedBook builds a valid book for tests.
func seedBook(ownerID int64, title, genre string) *domain.Book {
	book := domain.NewBook(ownerID)
	book.Title = title
	book.Author = "Test Author"
	book.Genre = genre
	book.PublicationDate = time.Date(2001, 6, 26, 0, 0, 0, 0, time.UTC)
	book.Synopsis = "A synopsis long enough to be plausible."
	return book
}
