package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Query is a backend-agnostic description of a filtered, sorted, limited read.
//
// Where holds predicate groups. Predicates inside a group are OR-combined and
// the groups themselves are AND-combined, so
//
//	Where: []Group{{a, b}, {c}}
//
// reads as (a OR b) AND (c).
type Query struct {
	Select  string
	From    string
	Where   []Group
	OrderBy []Sort
	Limit   int
}

// Group is a disjunction of predicates.
type Group []Predicate

type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

type Sort struct {
	Column    string
	Direction Direction
}

// Predicate is one boolean condition over a row.
// Implementations are closed to this package; use the constructors below.
type Predicate interface {
	postgres(args *argList) string
}

type argList struct {
	values []any
}

func (a *argList) add(v any) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

// And appends an OR group. Nil predicates are dropped and empty groups ignored.
func (q *Query) And(preds ...Predicate) *Query {
	g := make(Group, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			g = append(g, p)
		}
	}
	if len(g) > 0 {
		q.Where = append(q.Where, g)
	}
	return q
}

// Postgres compiles the query into SQL with $n placeholders.
func (q Query) Postgres() (string, []any) {
	var b strings.Builder
	var args argList

	b.WriteString("SELECT ")
	b.WriteString(q.Select)
	b.WriteString("\nFROM ")
	b.WriteString(q.From)

	if len(q.Where) > 0 {
		parts := make([]string, 0, len(q.Where))
		for _, g := range q.Where {
			or := make([]string, 0, len(g))
			for _, p := range g {
				or = append(or, p.postgres(&args))
			}
			if len(or) == 1 {
				parts = append(parts, or[0])
				continue
			}
			parts = append(parts, "("+strings.Join(or, " OR ")+")")
		}
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(parts, " AND "))
	}

	if len(q.OrderBy) > 0 {
		cols := make([]string, 0, len(q.OrderBy))
		for _, s := range q.OrderBy {
			cols = append(cols, s.Column+" "+s.Direction.String())
		}
		b.WriteString("\nORDER BY ")
		b.WriteString(strings.Join(cols, ", "))
	}

	if q.Limit > 0 {
		b.WriteString("\nLIMIT ")
		b.WriteString(args.add(q.Limit))
	}
	return b.String(), args.values
}

type ilike struct {
	column string
	term   string
}

// ILike matches rows whose column contains term, case-insensitively.
// LIKE wildcards in term are escaped so they match literally.
func ILike(column, term string) Predicate {
	return ilike{column: column, term: term}
}

func (p ilike) postgres(args *argList) string {
	return fmt.Sprintf(`%s ILIKE %s`, p.column, args.add(ContainsPattern(p.term)))
}

// Search ORs an ILike over every column. Returns nil when term is blank so
// callers can pass it straight to And.
func Search(term string, columns ...string) []Predicate {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return nil
	}
	out := make([]Predicate, 0, len(columns))
	for _, c := range columns {
		out = append(out, ILike(c, term))
	}
	return out
}

// ContainsPattern turns a free-text term into a %term% LIKE pattern.
func ContainsPattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

type eq struct {
	column string
	value  any
}

func Eq(column string, value any) Predicate {
	return eq{column: column, value: value}
}

func (p eq) postgres(args *argList) string {
	return p.column + " = " + args.add(p.value)
}

type after struct {
	columns []string
	values  []any
	dir     Direction
}

// After is the keyset cursor predicate: rows strictly past the given key in
// the given sort direction, compared as a row value.
func After(columns []string, values []any, dir Direction) Predicate {
	if len(columns) != len(values) || len(columns) == 0 {
		panic("query: After needs one value per column")
	}
	return after{columns: columns, values: values, dir: dir}
}

func (p after) postgres(args *argList) string {
	ph := make([]string, 0, len(p.values))
	for _, v := range p.values {
		ph = append(ph, args.add(v))
	}
	op := ">"
	if p.dir == Desc {
		op = "<"
	}
	return fmt.Sprintf("(%s) %s (%s)", strings.Join(p.columns, ", "), op, strings.Join(ph, ", "))
}
