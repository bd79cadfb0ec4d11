package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/redmonkez12/book-catalog-api/internal/catalog"
	"github.com/redmonkez12/book-catalog-api/internal/logging"
	"github.com/redmonkez12/book-catalog-api/internal/user"
)

// maxParallelItems caps concurrent resolution of list elements per list.
const maxParallelItems = 8

// Relation outcomes reported to a RelationObserver.
const (
	OutcomeResolved = "resolved"
	OutcomeMissing  = "missing"
	OutcomeFailed   = "failed"
)

type AuthorFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*catalog.Author, error)
}

type BookFinder interface {
	FindByAuthorID(ctx context.Context, authorID uuid.UUID) ([]*catalog.Book, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// RelationObserver is told the outcome of every relation lookup.
type RelationObserver interface {
	ObserveRelation(kind, field, outcome string)
}

// FieldError reports a relation that could not be resolved. Path is the
// dotted location of the field in the response tree.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Resolver builds response trees from root nodes, loading only the
// relations a selection asks for. It only reads.
type Resolver struct {
	authors  AuthorFinder
	books    BookFinder
	users    UserFinder
	observer RelationObserver
}

func NewResolver(authors AuthorFinder, books BookFinder, users UserFinder, observer RelationObserver) *Resolver {
	return &Resolver{
		authors:  authors,
		books:    books,
		users:    users,
		observer: observer,
	}
}

// Resolve renders one node. sel must come from Bind or Compile.
func (r *Resolver) Resolve(ctx context.Context, node Node, sel Selection) (map[string]any, []FieldError) {
	c := &errorCollector{}
	out := r.resolveNode(ctx, node, sel, nil, c)
	return out, c.list()
}

// ResolveList renders nodes in order. Error paths start with the element
// index.
func (r *Resolver) ResolveList(ctx context.Context, nodes []Node, sel Selection) ([]map[string]any, []FieldError) {
	c := &errorCollector{}
	out := r.resolveNodes(ctx, nodes, sel, nil, c)
	return out, c.list()
}

func (r *Resolver) resolveNodes(ctx context.Context, nodes []Node, sel Selection, path []string, c *errorCollector) []map[string]any {
	out := make([]map[string]any, len(nodes))

	var g errgroup.Group
	g.SetLimit(maxParallelItems)
	for i, n := range nodes {
		g.Go(func() error {
			out[i] = r.resolveNode(ctx, n, sel, appendPath(path, strconv.Itoa(i)), c)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (r *Resolver) resolveNode(ctx context.Context, node Node, sel Selection, path []string, c *errorCollector) map[string]any {
	out := make(map[string]any, len(sel))

	var related []Field
	for _, f := range sel {
		if value, ok := lookupScalar(node.Kind, f.Name); ok {
			out[f.Name] = value(node)
			continue
		}
		related = append(related, f)
	}

	if len(related) == 0 {
		return out
	}

	// Sibling relations are independent reads.
	values := make([]any, len(related))
	var g errgroup.Group
	for i, f := range related {
		g.Go(func() error {
			values[i] = r.resolveRelation(ctx, node, f, appendPath(path, f.Name), c)
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range related {
		out[f.Name] = values[i]
	}
	return out
}

// resolveRelation never fails the tree: a missing target becomes null and a
// failed lookup becomes null plus a FieldError.
func (r *Resolver) resolveRelation(ctx context.Context, parent Node, f Field, path []string, c *errorCollector) any {
	rel, ok := relations[relationKey{parent.Kind, f.Name}]
	if !ok {
		return nil
	}

	nodes, err := rel.resolve(ctx, r, parent)
	if err != nil {
		if isNotFound(err) {
			r.observe(parent.Kind, f.Name, OutcomeMissing)
			return nil
		}

		r.observe(parent.Kind, f.Name, OutcomeFailed)
		logging.GetLoggerFromContext(ctx).Error("failed to resolve relation",
			"kind", string(parent.Kind),
			"field", f.Name,
			"path", strings.Join(path, "."),
			"error", err.Error(),
		)
		c.add(FieldError{
			Path:    strings.Join(path, "."),
			Message: fmt.Sprintf("failed to resolve %s", f.Name),
		})
		return nil
	}

	r.observe(parent.Kind, f.Name, OutcomeResolved)

	if rel.many {
		return r.resolveNodes(ctx, nodes, f.Sub, path, c)
	}
	if len(nodes) == 0 {
		return nil
	}
	return r.resolveNode(ctx, nodes[0], f.Sub, path, c)
}

func (r *Resolver) observe(kind Kind, field, outcome string) {
	if r.observer != nil {
		r.observer.ObserveRelation(string(kind), field, outcome)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) || errors.Is(err, user.ErrNotFound)
}

func appendPath(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

type errorCollector struct {
	mu   sync.Mutex
	errs []FieldError
}

func (c *errorCollector) add(e FieldError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, e)
}

// list returns the errors ordered by path so output does not depend on
// goroutine scheduling.
func (c *errorCollector) list() []FieldError {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.SliceStable(c.errs, func(i, j int) bool { return pathLess(c.errs[i].Path, c.errs[j].Path) })
	return c.errs
}

// pathLess orders dotted paths segment by segment. List indices compare
// numerically so "2.author" sorts before "10.author".
func pathLess(a, b string) bool {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		ai, aErr := strconv.Atoi(as[i])
		bi, bErr := strconv.Atoi(bs[i])
		if aErr == nil && bErr == nil {
			return ai < bi
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}
