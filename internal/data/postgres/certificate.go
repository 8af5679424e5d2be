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

const certificatesTableName = "digital_certificates"

var certificatesSelector = sq.Select("*").From(certificatesTableName)

func NewCertificateQ(db *pgdb.DB) data.CertificateQ {
	return &CertificateQ{
		db:  db,
		sql: certificatesSelector,
	}
}

type CertificateQ struct {
	db  *pgdb.DB
	sql sq.SelectBuilder
}

func (q *CertificateQ) New() data.CertificateQ {
	return NewCertificateQ(q.db.Clone())
}

func (q *CertificateQ) ResetFilters() data.CertificateQ {
	q.sql = certificatesSelector
	return q
}

func (q *CertificateQ) Get() (*data.DigitalCertificate, error) {
	var result data.DigitalCertificate

	err := q.db.Get(&result, q.sql)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return &result, err
}

func (q *CertificateQ) Select() ([]data.DigitalCertificate, error) {
	var result []data.DigitalCertificate

	err := q.db.Select(&result, q.sql)

	return result, err
}

func (q *CertificateQ) Insert(value data.DigitalCertificate) (*data.DigitalCertificate, error) {
	var result data.DigitalCertificate
	clauses := structs.Map(value)
	stmt := sq.Insert(certificatesTableName).SetMap(clauses).Suffix("returning *")

	err := q.db.Get(&result, stmt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return &result, err
}

func (q *CertificateQ) Deactivate(companyID uuid.UUID) error {
	stmt := sq.Update(certificatesTableName).
		Set("active", false).
		Set("updated_at", sq.Expr("current_timestamp")).
		Where(sq.Eq{"company_id": companyID, "active": true})

	return q.db.Exec(stmt)
}

func (q *CertificateQ) FilterByCompany(companyID uuid.UUID) data.CertificateQ {
	q.sql = q.sql.Where(sq.Eq{"company_id": companyID})
	return q
}

func (q *CertificateQ) FilterActive() data.CertificateQ {
	q.sql = q.sql.Where(sq.Eq{"active": true})
	return q
}
