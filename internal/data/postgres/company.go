package data

import (
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/fatih/structs"
	"github.com/google/uuid"
	"gitlab.com/distributed_lab/kit/pgdb"

	"github.com/brfiscal/nfe-issuer-svc/internal/data"
)

const companiesTableName = "companies"

var companiesSelector = sq.Select("*").From(companiesTableName)

func NewCompanyQ(db *pgdb.DB) data.CompanyQ {
	return &CompanyQ{
		db:  db,
		sql: companiesSelector,
	}
}

type CompanyQ struct {
	db  *pgdb.DB
	sql sq.SelectBuilder
}

func (q *CompanyQ) New() data.CompanyQ {
	return NewCompanyQ(q.db.Clone())
}

func (q *CompanyQ) ResetFilters() data.CompanyQ {
	q.sql = companiesSelector
	return q
}

func (q *CompanyQ) Get() (*data.Company, error) {
	var result data.Company

	err := q.db.Get(&result, q.sql)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return &result, err
}

func (q *CompanyQ) Insert(value data.Company) (*data.Company, error) {
	var result data.Company
	clauses := structs.Map(value)
	stmt := sq.Insert(companiesTableName).SetMap(clauses).Suffix("returning *")

	err := q.db.Get(&result, stmt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return &result, err
}

func (q *CompanyQ) FilterByID(id uuid.UUID) data.CompanyQ {
	q.sql = q.sql.Where(sq.Eq{"id": id})
	return q
}

func (q *CompanyQ) FilterByCNPJ(cnpj string) data.CompanyQ {
	q.sql = q.sql.Where(sq.Eq{"cnpj": cnpj})
	return q
}
