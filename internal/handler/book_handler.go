package handler

import (
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/domain"
	"github.com/openshelf/openshelf/internal/query"
	"github.com/openshelf/openshelf/internal/service"
)

// maxMultipartMemory bounds the in-memory part of multipart parsing.
const maxMultipartMemory = 8 << 20 // 8MB

// BookHandler handles catalog requests.
type BookHandler struct {
	books  *service.BookService
	logger zerolog.Logger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(books *service.BookService, logger zerolog.Logger) *BookHandler {
	return &BookHandler{
		books:  books,
		logger: logger.With().Str("handler", "book").Logger(),
	}
}

// RegisterRoutes registers book routes. Listing and reads are public (the
// listing resolves an identity when a token is present); mutations require
// authentication. The /genres route must register before /{id} so chi does
// not treat "genres" as an ID.
func (h *BookHandler) RegisterRoutes(r chi.Router, authRequired, authOptional func(http.Handler) http.Handler) {
	r.With(authOptional).Get("/", h.handleList)
	r.Get("/genres", h.handleGenres)
	r.Get("/{id}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(authRequired)
		r.Post("/", h.handleCreate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

type listResponse struct {
	Books      []service.BookWithOwner `json:"books"`
	Pagination query.Pagination        `json:"pagination"`
}

func (h *BookHandler) handleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.books.List(r.Context(), query.Build(r.URL.Query()))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if out.Books == nil {
		out.Books = []service.BookWithOwner{}
	}
	writeJSON(w, http.StatusOK, listResponse{Books: out.Books, Pagination: out.Pagination})
}

func (h *BookHandler) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.books.Genres(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Genres []string `json:"genres"`
	}{Genres: genres})
}

func (h *BookHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	book, err := h.books.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Book *service.BookWithOwner `json:"book"`
	}{Book: book})
}

func (h *BookHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.RequireIdentity(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	input, cover, err := h.parseBookRequest(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if cover != nil {
		defer cover.file.Close()
	}

	book, err := h.books.Create(r.Context(), identity, input, cover.upload())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Message string                 `json:"message"`
		Book    *service.BookWithOwner `json:"book"`
	}{
		Message: "Book added successfully",
		Book:    book,
	})
}

func (h *BookHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.RequireIdentity(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	input, cover, err := h.parseBookRequest(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if cover != nil {
		defer cover.file.Close()
	}

	book, err := h.books.Update(r.Context(), identity, id, input, cover.upload())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message string                 `json:"message"`
		Book    *service.BookWithOwner `json:"book"`
	}{
		Message: "Book updated successfully",
		Book:    book,
	})
}

func (h *BookHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.RequireIdentity(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	if err := h.books.Delete(r.Context(), identity, id); err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Book deleted successfully"})
}

// bookID parses the {id} route parameter.
func (h *BookHandler) bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid book ID"})
		return 0, false
	}
	return id, true
}

// bookForm is the JSON body shape for book create/update.
type bookForm struct {
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	Genre           string  `json:"genre"`
	PublicationDate string  `json:"publicationDate"`
	Synopsis        string  `json:"synopsis"`
	ISBN            *string `json:"isbn"`
	Pages           *int    `json:"pages"`
	Publisher       string  `json:"publisher"`
	Language        string  `json:"language"`
	Rating          float64 `json:"rating"`
}

// coverPart keeps the multipart file handle alive until the handler is done
// streaming it into the cover store.
type coverPart struct {
	file        multipart.File
	contentType string
}

// upload converts to the service-level input; a nil receiver stays nil.
func (c *coverPart) upload() *service.CoverUpload {
	if c == nil {
		return nil
	}
	return &service.CoverUpload{ContentType: c.contentType, Reader: c.file}
}

// parseBookRequest reads a book payload from either a JSON body or a
// multipart form with an optional coverImage file.
func (h *BookHandler) parseBookRequest(r *http.Request) (service.BookInput, *coverPart, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var form bookForm
	var cover *coverPart

	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return service.BookInput{}, nil, domain.NewValidationError("body", "invalid multipart form")
		}

		form = bookForm{
			Title:           r.FormValue("title"),
			Author:          r.FormValue("author"),
			Genre:           r.FormValue("genre"),
			PublicationDate: r.FormValue("publicationDate"),
			Synopsis:        r.FormValue("synopsis"),
			Publisher:       r.FormValue("publisher"),
			Language:        r.FormValue("language"),
		}
		if v := r.FormValue("isbn"); v != "" {
			form.ISBN = &v
		}
		if v := r.FormValue("pages"); v != "" {
			pages, err := strconv.Atoi(v)
			if err != nil {
				return service.BookInput{}, nil, domain.NewValidationError("pages", "pages must be a number")
			}
			form.Pages = &pages
		}
		if v := r.FormValue("rating"); v != "" {
			rating, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return service.BookInput{}, nil, domain.NewValidationError("rating", "rating must be a number")
			}
			form.Rating = rating
		}

		file, header, err := r.FormFile("coverImage")
		if err == nil {
			cover = &coverPart{file: file, contentType: header.Header.Get("Content-Type")}
		} else if err != http.ErrMissingFile {
			return service.BookInput{}, nil, domain.NewValidationError("coverImage", "error reading cover image")
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return service.BookInput{}, nil, domain.NewValidationError("body", "invalid request body")
		}
	}

	pubDate, err := parsePublicationDate(form.PublicationDate)
	if err != nil {
		if cover != nil {
			cover.file.Close()
		}
		return service.BookInput{}, nil, err
	}

	return service.BookInput{
		Title:           form.Title,
		Author:          form.Author,
		Genre:           form.Genre,
		PublicationDate: pubDate,
		Synopsis:        form.Synopsis,
		ISBN:            form.ISBN,
		Pages:           form.Pages,
		Publisher:       form.Publisher,
		Language:        form.Language,
		Rating:          form.Rating,
	}, cover, nil
}

// parsePublicationDate accepts RFC 3339 timestamps and plain dates.
func parsePublicationDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil // Validate reports the missing field
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, domain.NewValidationError("publicationDate", "invalid publication date")
}
