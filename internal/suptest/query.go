package suptest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// restQuery is the parsed form of the query parameters the client sends:
// filter predicates, ordering and limit, plus the select list with its
// relationship embeds.
type restQuery struct {
	where   string
	args    []any
	orderBy string
	limit   int
	embeds  []embedSpec
}

type embedSpec struct {
	alias string
	table string
	hint  string
	cols  []string
}

// reservedParams are query keys that are not column filters.
var reservedParams = map[string]bool{
	"select":      true,
	"order":       true,
	"limit":       true,
	"on_conflict": true,
}

func parseQuery(params url.Values) (restQuery, error) {
	q := restQuery{limit: -1}

	var conds []string
	for key, vals := range params {
		if reservedParams[key] {
			continue
		}
		for _, val := range vals {
			if key == "or" {
				sql, args, err := parseGroup("or", strings.TrimSuffix(strings.TrimPrefix(val, "("), ")"))
				if err != nil {
					return restQuery{}, err
				}
				conds = append(conds, sql)
				q.args = append(q.args, args...)
				continue
			}
			sql, arg, err := parseOp(key, val)
			if err != nil {
				return restQuery{}, err
			}
			conds = append(conds, sql)
			switch a := arg.(type) {
			case []any:
				q.args = append(q.args, a...)
			default:
				q.args = append(q.args, a)
			}
		}
	}
	q.where = strings.Join(conds, " AND ")

	if order := params.Get("order"); order != "" {
		col, dir, _ := strings.Cut(order, ".")
		if dir != "desc" {
			dir = "asc"
		}
		q.orderBy = col + " " + strings.ToUpper(dir)
	}

	if limit := params.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return restQuery{}, fmt.Errorf("bad limit %q", limit)
		}
		q.limit = n
	}

	var err error
	q.embeds, err = parseSelect(params.Get("select"))
	if err != nil {
		return restQuery{}, err
	}
	return q, nil
}

// parseOp turns "col" + "op.value" into one SQL predicate.
func parseOp(col, expr string) (string, any, error) {
	op, val, ok := strings.Cut(expr, ".")
	if !ok {
		return "", nil, fmt.Errorf("bad filter %s=%s", col, expr)
	}
	switch op {
	case "eq":
		return col + " = ?", val, nil
	case "neq":
		return col + " != ?", val, nil
	case "gt":
		return col + " > ?", val, nil
	case "ilike":
		return col + " LIKE ? ESCAPE '\\'", strings.ReplaceAll(val, "*", "%"), nil
	case "in":
		inner := strings.TrimSuffix(strings.TrimPrefix(val, "("), ")")
		items := splitTop(inner)
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(items)), ",")
		args := make([]any, len(items))
		for i, item := range items {
			args[i] = item
		}
		return col + " IN (" + placeholders + ")", args, nil
	}
	return "", nil, fmt.Errorf("unsupported operator %q", op)
}

// parseGroup parses the inside of an and(...)/or(...) logic group.
func parseGroup(logic, inner string) (string, []any, error) {
	var conds []string
	var args []any

	for _, item := range splitTop(inner) {
		if rest, ok := strings.CutPrefix(item, "and("); ok {
			sql, nested, err := parseGroup("and", strings.TrimSuffix(rest, ")"))
			if err != nil {
				return "", nil, err
			}
			conds = append(conds, sql)
			args = append(args, nested...)
			continue
		}
		if rest, ok := strings.CutPrefix(item, "or("); ok {
			sql, nested, err := parseGroup("or", strings.TrimSuffix(rest, ")"))
			if err != nil {
				return "", nil, err
			}
			conds = append(conds, sql)
			args = append(args, nested...)
			continue
		}

		parts := strings.SplitN(item, ".", 2)
		if len(parts) != 2 {
			return "", nil, fmt.Errorf("bad predicate %q", item)
		}
		sql, arg, err := parseOp(parts[0], parts[1])
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, sql)
		switch a := arg.(type) {
		case []any:
			args = append(args, a...)
		default:
			args = append(args, a)
		}
	}

	joiner := " OR "
	if logic == "and" {
		joiner = " AND "
	}
	return "(" + strings.Join(conds, joiner) + ")", args, nil
}

// parseSelect extracts relation embeds from the select list. Plain columns
// are ignored; the base row is always returned whole, which is a superset of
// what the real service would project and decodes the same way.
func parseSelect(sel string) ([]embedSpec, error) {
	if sel == "" || sel == "*" {
		return nil, nil
	}

	var embeds []embedSpec
	for _, item := range splitTop(sel) {
		open := strings.IndexByte(item, '(')
		if open < 0 {
			continue // plain column
		}
		if !strings.HasSuffix(item, ")") {
			return nil, fmt.Errorf("bad embed %q", item)
		}

		head := item[:open]
		cols := splitTop(item[open+1 : len(item)-1])

		spec := embedSpec{cols: cols}
		alias, rel, ok := strings.Cut(head, ":")
		if !ok {
			rel = head
			alias = head
		}
		spec.alias = alias
		spec.table, spec.hint, _ = strings.Cut(rel, "!")
		embeds = append(embeds, spec)
	}
	return embeds, nil
}

// splitTop splits on commas that are not inside parentheses.
func splitTop(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if start <= len(s) {
		out = append(out, s[start:])
	}
	return out
}
