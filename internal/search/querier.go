// Package search runs the registry's ad-hoc lookups: LIKE-based
// multi-column OR searches over businesses joined to their affiliates.
//
// Column names in generated SQL are validated against the live catalog
// before interpolation; the search term itself always travels as a bound
// parameter.
package search

import (
	"database/sql"
	"fmt"
	"strings"

	"cacdb/internal/schema"
	"cacdb/internal/sqlitedb"
)

const (
	// BusinessTable holds one row per registered organization.
	BusinessTable = "organizations_old"
	// AffiliateTable holds directors, shareholders and other people
	// linked to an organization.
	AffiliateTable = "affiliates"
)

// Default searchable column sets.
var (
	DefaultBusinessColumns  = []string{"organization_id", "rcNumber", "approvedName", "natureOfBusinessFk", "classificationFk", "address"}
	DefaultAffiliateColumns = []string{"surname", "firstname", "otherName", "email"}
)

// Match is one business/affiliate pair produced by a search. Affiliate
// fields are NULL when the business has no affiliates (LEFT JOIN).
type Match struct {
	BusinessID   int64
	BusinessName sql.NullString
	RCNumber     sql.NullString
	Address      sql.NullString
	AffiliateID  sql.NullInt64
	Surname      sql.NullString
	Firstname    sql.NullString
	Email        sql.NullString
}

// Querier owns a read connection to the registry and the catalogs of the
// two searchable tables.
type Querier struct {
	db      *sql.DB
	bizCols map[string]bool
	affCols map[string]bool
}

// NewQuerier reads both table catalogs and returns a Querier. Fails with
// schema.ErrTableNotFound when either registry table is missing.
func NewQuerier(db *sql.DB) (*Querier, error) {
	biz, err := schema.Columns(db, BusinessTable)
	if err != nil {
		return nil, err
	}
	aff, err := schema.Columns(db, AffiliateTable)
	if err != nil {
		return nil, err
	}

	q := &Querier{
		db:      db,
		bizCols: make(map[string]bool, len(biz)),
		affCols: make(map[string]bool, len(aff)),
	}
	for _, c := range biz {
		q.bizCols[c.Name] = true
	}
	for _, c := range aff {
		q.affCols[c.Name] = true
	}
	return q, nil
}

// ByBusiness searches business columns for term and returns each hit
// with its affiliates. cols defaults to DefaultBusinessColumns.
func (q *Querier) ByBusiness(term string, cols []string) ([]Match, error) {
	if len(cols) == 0 {
		cols = DefaultBusinessColumns
	}
	where, params, err := likeClause("b", cols, q.bizCols, term)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT b.id, b.approvedName, b.rcNumber, b.address,
		       a.id, a.surname, a.firstname, a.email
		FROM %s b
		LEFT JOIN %s a ON b.organization_id = a.organization_id
		WHERE %s
		ORDER BY b.id, a.id`,
		sqlitedb.Quote(BusinessTable), sqlitedb.Quote(AffiliateTable), where)

	return q.run(query, params)
}

// ByAffiliate searches affiliate columns for term and returns the
// associated businesses with all their affiliates. cols defaults to
// DefaultAffiliateColumns.
func (q *Querier) ByAffiliate(term string, cols []string) ([]Match, error) {
	if len(cols) == 0 {
		cols = DefaultAffiliateColumns
	}
	where, params, err := likeClause("a", cols, q.affCols, term)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT b.id, b.approvedName, b.rcNumber, b.address,
		       a2.id, a2.surname, a2.firstname, a2.email
		FROM %s b
		INNER JOIN %s a ON b.organization_id = a.organization_id
		LEFT JOIN %s a2 ON b.organization_id = a2.organization_id
		WHERE %s
		ORDER BY b.id, a2.id`,
		sqlitedb.Quote(BusinessTable), sqlitedb.Quote(AffiliateTable),
		sqlitedb.Quote(AffiliateTable), where)

	return q.run(query, params)
}

// Combined searches both sides and merges the results, deduplicating on
// the (business, affiliate) pair.
func (q *Querier) Combined(term string, bizCols, affCols []string) ([]Match, error) {
	byBiz, err := q.ByBusiness(term, bizCols)
	if err != nil {
		return nil, err
	}
	byAff, err := q.ByAffiliate(term, affCols)
	if err != nil {
		return nil, err
	}

	type key struct {
		biz int64
		aff sql.NullInt64
	}
	seen := make(map[key]bool)
	var merged []Match
	for _, m := range append(byBiz, byAff...) {
		k := key{m.BusinessID, m.AffiliateID}
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, m)
	}
	return merged, nil
}

// likeClause builds "alias.col LIKE ? OR ..." over cols, rejecting any
// column not present in the table catalog. The term is returned as bound
// parameters, one per column.
func likeClause(alias string, cols []string, catalog map[string]bool, term string) (string, []interface{}, error) {
	var conditions []string
	var params []interface{}
	for _, col := range cols {
		if !catalog[col] {
			return "", nil, fmt.Errorf("unknown search column: %s", col)
		}
		conditions = append(conditions, fmt.Sprintf("%s.%s LIKE ?", alias, sqlitedb.Quote(col)))
		params = append(params, "%"+term+"%")
	}
	return strings.Join(conditions, " OR "), params, nil
}

func (q *Querier) run(query string, params []interface{}) ([]Match, error) {
	rows, err := q.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.BusinessID, &m.BusinessName, &m.RCNumber, &m.Address,
			&m.AffiliateID, &m.Surname, &m.Firstname, &m.Email); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}
	return matches, nil
}
