package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/respond"
)

const maxBodyBytes = 1 << 20

// kindsByPath maps URL segments onto content kinds.
var kindsByPath = map[string]platform.Kind{
	"stories": platform.KindStory,
	"media":   platform.KindMedia,
	"events":  platform.KindEvent,
}

func kindParam(r *http.Request) (platform.Kind, error) {
	kind, ok := kindsByPath[chi.URLParam(r, "kind")]
	if !ok {
		return "", platform.NotFoundError("resource")
	}
	return kind, nil
}

func idParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, platform.FieldError("id", "must be a valid UUID")
	}
	return id, nil
}

// mediaIDParam parses the id of a /{kind}/{id}/file route, which only
// exists for media.
func mediaIDParam(r *http.Request) (uuid.UUID, error) {
	kind, err := kindParam(r)
	if err != nil {
		return uuid.Nil, err
	}
	if kind != platform.KindMedia {
		return uuid.Nil, platform.NotFoundError("resource")
	}
	return idParam(r)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := render.DecodeJSON(http.MaxBytesReader(nil, r.Body, maxBodyBytes), v); err != nil {
		return platform.ValidationError("invalid request body", nil)
	}
	return nil
}

// queryParams collects typed query parameters and their parse failures.
type queryParams struct {
	values url.Values
	errs   map[string][]string
}

func newQuery(r *http.Request) *queryParams {
	return &queryParams{values: r.URL.Query(), errs: map[string][]string{}}
}

func (q *queryParams) fail(name, problem string) {
	q.errs[name] = append(q.errs[name], problem)
}

func (q *queryParams) uuid(name string) *uuid.UUID {
	raw := q.values.Get(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		q.fail(name, "must be a valid UUID")
		return nil
	}
	return &id
}

func (q *queryParams) boolean(name string) *bool {
	raw := q.values.Get(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, "must be true or false")
		return nil
	}
	return &b
}

func (q *queryParams) integer(name string) int {
	raw := q.values.Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		q.fail(name, "must be a non-negative integer")
		return 0
	}
	return n
}

func (q *queryParams) approval(name string) *platform.ApprovalState {
	raw := q.values.Get(name)
	if raw == "" {
		return nil
	}
	state := platform.ApprovalState(raw)
	if !state.IsValid() {
		q.fail(name, "must be pending, approved or rejected")
		return nil
	}
	return &state
}

func (q *queryParams) publication(name string) *platform.PublicationState {
	raw := q.values.Get(name)
	if raw == "" {
		return nil
	}
	state := platform.PublicationState(raw)
	if !state.IsValid() {
		q.fail(name, "must be draft or published")
		return nil
	}
	return &state
}

func (q *queryParams) text(name string) string {
	return q.values.Get(name)
}

func (q *queryParams) err() error {
	if len(q.errs) == 0 {
		return nil
	}
	return platform.ValidationError("invalid query parameters", q.errs)
}

// listResponse wraps collection results.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func writeList[T any](w http.ResponseWriter, r *http.Request, items []T) {
	if items == nil {
		items = []T{}
	}
	respond.JSON(w, r, http.StatusOK, listResponse[T]{Items: items, Count: len(items)})
}
