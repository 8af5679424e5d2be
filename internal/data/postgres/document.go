package data

import (
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/fatih/structs"
	"github.com/google/uuid"
	"gitlab.com/distributed_lab/kit/pgdb"

	"github.com/brfiscal/nfe-issuer-svc/internal/data"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

const (
	documentsTableName = "fiscal_documents"
	lineItemsTableName = "line_items"
)

var documentsSelector = sq.Select("*").From(documentsTableName)

func NewFiscalDocumentQ(db *pgdb.DB) data.FiscalDocumentQ {
	return &FiscalDocumentQ{
		db:  db,
		sql: documentsSelector,
	}
}

type FiscalDocumentQ struct {
	db  *pgdb.DB
	sql sq.SelectBuilder
}

func (q *FiscalDocumentQ) New() data.FiscalDocumentQ {
	return NewFiscalDocumentQ(q.db.Clone())
}

func (q *FiscalDocumentQ) ResetFilters() data.FiscalDocumentQ {
	q.sql = documentsSelector
	return q
}

func (q *FiscalDocumentQ) Get() (*data.FiscalDocument, error) {
	var result data.FiscalDocument

	err := q.db.Get(&result, q.sql)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return &result, err
}

func (q *FiscalDocumentQ) Select() ([]data.FiscalDocument, error) {
	var result []data.FiscalDocument

	err := q.db.Select(&result, q.sql)

	return result, err
}

func (q *FiscalDocumentQ) Insert(value data.FiscalDocument) (*data.FiscalDocument, error) {
	var result data.FiscalDocument
	clauses := structs.Map(value)
	stmt := sq.Insert(documentsTableName).SetMap(clauses).Suffix("returning *")

	err := q.db.Get(&result, stmt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return &result, err
}

func (q *FiscalDocumentQ) Update(value data.FiscalDocument) (*data.FiscalDocument, error) {
	var result data.FiscalDocument
	clauses := structs.Map(value)
	delete(clauses, "id")
	clauses["updated_at"] = sq.Expr("current_timestamp")
	stmt := sq.Update(documentsTableName).
		SetMap(clauses).
		Where(sq.Eq{"id": value.ID}).
		Suffix("returning *")

	err := q.db.Get(&result, stmt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return &result, err
}

func (q *FiscalDocumentQ) FilterByID(id uuid.UUID) data.FiscalDocumentQ {
	q.sql = q.sql.Where(sq.Eq{"id": id})
	return q
}

func (q *FiscalDocumentQ) FilterByAccessKey(key string) data.FiscalDocumentQ {
	q.sql = q.sql.Where(sq.Eq{"access_key": key})
	return q
}

func (q *FiscalDocumentQ) FilterByStatus(status types.DocumentStatus) data.FiscalDocumentQ {
	q.sql = q.sql.Where(sq.Eq{"status": status})
	return q
}

func (q *FiscalDocumentQ) FilterUpdatedBefore(cutoff time.Time) data.FiscalDocumentQ {
	q.sql = q.sql.Where(sq.Lt{"updated_at": cutoff})
	return q
}

func NewLineItemQ(db *pgdb.DB) data.LineItemQ {
	return &LineItemQ{db: db}
}

type LineItemQ struct {
	db *pgdb.DB
}

func (q *LineItemQ) New() data.LineItemQ {
	return NewLineItemQ(q.db.Clone())
}

func (q *LineItemQ) Insert(value data.LineItem) (*data.LineItem, error) {
	var result data.LineItem
	clauses := structs.Map(value)
	stmt := sq.Insert(lineItemsTableName).SetMap(clauses).Suffix("returning *")

	err := q.db.Get(&result, stmt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return &result, err
}

func (q *LineItemQ) SelectByDocument(documentID uuid.UUID) ([]data.LineItem, error) {
	var result []data.LineItem

	stmt := sq.Select("*").From(lineItemsTableName).Where(sq.Eq{"document_id": documentID})
	err := q.db.Select(&result, stmt)

	return result, err
}
