package postgrest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Query accumulates filter predicates, ordering, limits and relationship
// embeds for one request. Filters translate one-to-one into the service's
// query parameters; nothing is evaluated locally.
type Query struct {
	client     *Client
	table      string
	selectCols string
	filters    [][2]string
	order      string
	limit      int
	single     bool
	onConflict string
}

// Select sets the column list, including relationship embeds such as
// "*,user:users(id,username,avatar_url)".
func (q *Query) Select(cols string) *Query {
	q.selectCols = cols
	return q
}

func (q *Query) Eq(col, val string) *Query  { return q.filter(col, "eq."+val) }
func (q *Query) Neq(col, val string) *Query { return q.filter(col, "neq."+val) }
func (q *Query) Gt(col, val string) *Query  { return q.filter(col, "gt."+val) }

// Ilike matches col against a case-insensitive pattern ("%" wildcards).
func (q *Query) Ilike(col, pattern string) *Query {
	return q.filter(col, "ilike."+pattern)
}

// In restricts col to a set of values.
func (q *Query) In(col string, vals []string) *Query {
	return q.filter(col, "in.("+strings.Join(vals, ",")+")")
}

// Or combines predicate expressions disjunctively. Expressions are built with
// the package-level Eq/And helpers, e.g.
// Or(And(Eq("user1_id", a), Eq("user2_id", b)), And(...)).
func (q *Query) Or(exprs ...string) *Query {
	return q.filter("or", "("+strings.Join(exprs, ",")+")")
}

func (q *Query) filter(key, val string) *Query {
	q.filters = append(q.filters, [2]string{key, val})
	return q
}

// Order sets the result ordering.
func (q *Query) Order(col string, ascending bool) *Query {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.order = col + "." + dir
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Single makes the query expect exactly one row; reads decode into a struct
// instead of a slice and an empty result surfaces as ErrNotFound.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// OnConflict names the unique columns an Upsert merges on.
func (q *Query) OnConflict(cols string) *Query {
	q.onConflict = cols
	return q
}

func (q *Query) params(withSelect bool) url.Values {
	v := url.Values{}
	if withSelect {
		v.Set("select", q.selectCols)
	}
	for _, f := range q.filters {
		v.Add(f[0], f[1])
	}
	if q.order != "" {
		v.Set("order", q.order)
	}
	if q.limit >= 0 {
		v.Set("limit", strconv.Itoa(q.limit))
	}
	if q.onConflict != "" {
		v.Set("on_conflict", q.onConflict)
	}
	return v
}

func (q *Query) url(withSelect bool) string {
	u := q.client.baseURL + "/rest/v1/" + q.table
	if params := q.params(withSelect).Encode(); params != "" {
		u += "?" + params
	}
	return u
}

func (q *Query) headers(prefer string) map[string]string {
	h := map[string]string{}
	if q.single {
		h["Accept"] = "application/vnd.pgrst.object+json"
	}
	if prefer != "" {
		h["Prefer"] = prefer
	}
	return h
}

// Get runs the query and decodes the rows into dest (a slice pointer, or a
// struct pointer for Single queries).
func (q *Query) Get(ctx context.Context, dest any) error {
	return q.client.do(ctx, http.MethodGet, q.url(true), q.headers(""), nil, dest)
}

// Insert creates one row. When dest is non-nil the created representation is
// returned into it; combine with Single to decode a lone struct.
func (q *Query) Insert(ctx context.Context, row any, dest any) error {
	prefer := "return=minimal"
	if dest != nil {
		prefer = "return=representation"
	}
	return q.client.do(ctx, http.MethodPost, q.url(dest != nil), q.headers(prefer), row, dest)
}

// Upsert inserts or, when the OnConflict columns collide, updates in place.
func (q *Query) Upsert(ctx context.Context, row any) error {
	return q.client.do(ctx, http.MethodPost, q.url(false), q.headers("return=minimal,resolution=merge-duplicates"), row, nil)
}

// Update patches the filtered rows with the given column changes.
func (q *Query) Update(ctx context.Context, changes any) error {
	return q.client.do(ctx, http.MethodPatch, q.url(false), q.headers("return=minimal"), changes, nil)
}

// Delete removes the filtered rows.
func (q *Query) Delete(ctx context.Context) error {
	return q.client.do(ctx, http.MethodDelete, q.url(false), q.headers(""), nil, nil)
}

// Eq renders one equality predicate for use inside Or groups.
func Eq(col, val string) string {
	return col + ".eq." + val
}

// And renders a conjunctive predicate group for use inside Or groups.
func And(conds ...string) string {
	return "and(" + strings.Join(conds, ",") + ")"
}
