package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/book-catalog-api/internal/catalog"
	"github.com/redmonkez12/book-catalog-api/internal/graph"
	"github.com/redmonkez12/book-catalog-api/internal/httputil"
	"github.com/redmonkez12/book-catalog-api/internal/identity"
	"github.com/redmonkez12/book-catalog-api/internal/logging"
)

// Response is the envelope of every catalog response. Errors lists the
// relation fields that failed to resolve and were returned as null.
type Response struct {
	Data   any                `json:"data"`
	Errors []graph.FieldError `json:"errors,omitempty"`
}

// CatalogHandler serves authors and books. Every route accepts a fields
// query parameter selecting scalar and relation fields of the result.
type CatalogHandler struct {
	service  *catalog.Service
	resolver *graph.Resolver
}

func NewCatalogHandler(service *catalog.Service, resolver *graph.Resolver) *CatalogHandler {
	return &CatalogHandler{service: service, resolver: resolver}
}

// ListAuthors returns every author
// @Summary      List authors
// @Tags         authors
// @Produce      json
// @Param        fields    query string false "Field selection, e.g. name,books{title}"
// @Param        createdBy query string false "Only authors created by this user id"
// @Success      200 {object} Response
// @Failure      400 {object} httputil.ErrorResponse "Invalid selection or filter"
// @Router       /authors [get]
func (h *CatalogHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	sel, ok := compileSelection(w, r, graph.KindAuthor)
	if !ok {
		return
	}

	var filter catalog.AuthorFilter
	if filter.CreatedBy, ok = optionalUUID(w, r, "createdBy"); !ok {
		return
	}

	authors, err := h.service.Authors().FindMany(r.Context(), filter)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	nodes := make([]graph.Node, len(authors))
	for i, a := range authors {
		nodes[i] = graph.AuthorNode(a)
	}

	data, fieldErrs := h.resolver.ResolveList(r.Context(), nodes, sel)
	httputil.RespondJSON(w, Response{Data: data, Errors: fieldErrs}, http.StatusOK)
}

// GetAuthor returns one author
// @Summary      Get an author
// @Tags         authors
// @Produce      json
// @Param        id     path  string true  "Author id"
// @Param        fields query string false "Field selection"
// @Success      200 {object} Response
// @Failure      404 {object} httputil.ErrorResponse "Author not found"
// @Router       /authors/{id} [get]
func (h *CatalogHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	sel, ok := compileSelection(w, r, graph.KindAuthor)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	author, err := h.service.Authors().FindByID(r.Context(), id)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	h.respondNode(w, r, graph.AuthorNode(author), sel, http.StatusOK)
}

// CreateAuthor creates an author owned by the caller
// @Summary      Create an author
// @Tags         authors
// @Accept       json
// @Produce      json
// @Param        request body  catalog.AuthorInput true "Author"
// @Param        fields  query string false "Field selection of the result"
// @Success      201 {object} Response
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Router       /authors [post]
func (h *CatalogHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	sel, ok := compileSelection(w, r, graph.KindAuthor)
	if !ok {
		return
	}

	var in catalog.AuthorInput
	if !decodeInput(w, r, &in) {
		return
	}

	author, err := h.service.CreateAuthor(r.Context(), identity.Actor(r.Context()), in)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("author created", "author_id", author.ID)
	h.respondNode(w, r, graph.AuthorNode(author), sel, http.StatusCreated)
}

// UpdateAuthor replaces an author's fields
// @Summary      Update an author
// @Tags         authors
// @Accept       json
// @Produce      json
// @Param        id      path  string true "Author id"
// @Param        request body  catalog.AuthorInput true "Author"
// @Param        fields  query string false "Field selection of the result"
// @Success      200 {object} Response
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      404 {object} httputil.ErrorResponse "Author not found"
// @Router       /authors/{id} [put]
func (h *CatalogHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	sel, ok := compileSelection(w, r, graph.KindAuthor)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in catalog.AuthorInput
	if !decodeInput(w, r, &in) {
		return
	}

	author, err := h.service.UpdateAuthor(r.Context(), identity.Actor(r.Context()), id, in)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	h.respondNode(w, r, graph.AuthorNode(author), sel, http.StatusOK)
}

// DeleteAuthor removes an author. Its books are kept.
// @Summary      Delete an author
// @Tags         authors
// @Produce      json
// @Param        id path string true "Author id"
// @Success      200 {object} Response{data=catalog.DeletedAuthor}
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      404 {object} httputil.ErrorResponse "Author not found"
// @Router       /authors/{id} [delete]
func (h *CatalogHandler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteAuthor(r.Context(), identity.Actor(r.Context()), id)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("author deleted", "author_id", deleted.ID)
	httputil.RespondJSON(w, Response{Data: deleted}, http.StatusOK)
}

// ListBooks returns every book
// @Summary      List books
// @Tags         books
// @Produce      json
// @Param        fields    query string false "Field selection, e.g. title,author{name}"
// @Param        author    query string false "Only books by this author id"
// @Param        createdBy query string false "Only books created by this user id"
// @Success      200 {object} Response
// @Failure      400 {object} httputil.ErrorResponse "Invalid selection or filter"
// @Router       /books [get]
func (h *CatalogHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	sel, ok := compileSelection(w, r, graph.KindBook)
	if !ok {
		return
	}

	var filter catalog.BookFilter
	if filter.AuthorID, ok = optionalUUID(w, r, "author"); !ok {
		return
	}
	if filter.CreatedBy, ok = optionalUUID(w, r, "createdBy"); !ok {
		return
	}

	books, err := h.service.Books().FindMany(r.Context(), filter)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	nodes := make([]graph.Node, len(books))
	for i, b := range books {
		nodes[i] = graph.BookNode(b)
	}

	data, fieldErrs := h.resolver.ResolveList(r.Context(), nodes, sel)
	httputil.RespondJSON(w, Response{Data: data, Errors: fieldErrs}, http.StatusOK)
}

// GetBook returns one book
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Param        id     path  string true  "Book id"
// @Param        fields query string false "Field selection"
// @Success      200 {object} Response
// @Failure      404 {object} httputil.ErrorResponse "Book not found"
// @Router       /books/{id} [get]
func (h *CatalogHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	sel, ok := compileSelection(w, r, graph.KindBook)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	book, err := h.service.Books().FindByID(r.Context(), id)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	h.respondNode(w, r, graph.BookNode(book), sel, http.StatusOK)
}

// CreateBook creates a book owned by the caller
// @Summary      Create a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        request body  catalog.BookInput true "Book"
// @Param        fields  query string false "Field selection of the result"
// @Success      201 {object} Response
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Router       /books [post]
func (h *CatalogHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	sel, ok := compileSelection(w, r, graph.KindBook)
	if !ok {
		return
	}

	var in catalog.BookInput
	if !decodeInput(w, r, &in) {
		return
	}

	book, err := h.service.CreateBook(r.Context(), identity.Actor(r.Context()), in)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("book created", "book_id", book.ID)
	h.respondNode(w, r, graph.BookNode(book), sel, http.StatusCreated)
}

// UpdateBook replaces a book's fields
// @Summary      Update a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        id      path  string true "Book id"
// @Param        request body  catalog.BookInput true "Book"
// @Param        fields  query string false "Field selection of the result"
// @Success      200 {object} Response
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      404 {object} httputil.ErrorResponse "Book not found"
// @Router       /books/{id} [put]
func (h *CatalogHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	sel, ok := compileSelection(w, r, graph.KindBook)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in catalog.BookInput
	if !decodeInput(w, r, &in) {
		return
	}

	book, err := h.service.UpdateBook(r.Context(), identity.Actor(r.Context()), id, in)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	h.respondNode(w, r, graph.BookNode(book), sel, http.StatusOK)
}

// DeleteBook removes a book
// @Summary      Delete a book
// @Tags         books
// @Produce      json
// @Param        id path string true "Book id"
// @Success      200 {object} Response{data=catalog.DeletedBook}
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      404 {object} httputil.ErrorResponse "Book not found"
// @Router       /books/{id} [delete]
func (h *CatalogHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteBook(r.Context(), identity.Actor(r.Context()), id)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("book deleted", "book_id", deleted.ID)
	httputil.RespondJSON(w, Response{Data: deleted}, http.StatusOK)
}

func (h *CatalogHandler) respondNode(w http.ResponseWriter, r *http.Request, node graph.Node, sel graph.Selection, status int) {
	data, fieldErrs := h.resolver.Resolve(r.Context(), node, sel)
	httputil.RespondJSON(w, Response{Data: data, Errors: fieldErrs}, status)
}

func compileSelection(w http.ResponseWriter, r *http.Request, kind graph.Kind) (graph.Selection, bool) {
	sel, err := graph.Compile(kind, r.URL.Query().Get("fields"))
	if err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidSelection, http.StatusBadRequest)
		return nil, false
	}
	return sel, true
}

// pathID parses the {id} URL parameter. A malformed id cannot match any
// record, so it gets the same response as a missing one.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, catalog.ErrNotFound.Error(), httputil.CodeNotFound, http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(w http.ResponseWriter, r *http.Request, param string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.RespondErrorWithCode(w, param+" must be a valid id", httputil.CodeValidationFailed, http.StatusBadRequest)
		return nil, false
	}
	return &id, true
}

func decodeInput(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		logging.GetLoggerFromContext(r.Context()).Warn("invalid catalog request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return false
	}
	return true
}

// respondCatalogError maps catalog errors to responses. Anything unexpected
// is logged and reported without detail.
func respondCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnauthenticated):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeUnauthenticated, http.StatusUnauthorized)
	case errors.Is(err, catalog.ErrNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, catalog.ErrValidation):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	default:
		logging.GetLoggerFromContext(r.Context()).Error("catalog request failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
