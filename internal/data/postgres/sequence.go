package data

import (
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"gitlab.com/distributed_lab/kit/pgdb"

	"github.com/brfiscal/nfe-issuer-svc/internal/data"
)

const sequencesTableName = "sequence_counters"

func NewSequenceQ(db *pgdb.DB) data.SequenceQ {
	return &SequenceQ{db: db}
}

type SequenceQ struct {
	db *pgdb.DB
}

func (q *SequenceQ) New() data.SequenceQ {
	return NewSequenceQ(q.db.Clone())
}

func (q *SequenceQ) Next(companyID uuid.UUID, series int) (int, error) {
	var next int

	stmt := sq.Select("next_number").
		From(sequencesTableName).
		Where(sq.Eq{"company_id": companyID, "series": series})

	err := q.db.Get(&next, stmt)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}

	return next, err
}

// Bump is a single upsert so concurrent callers never observe the same
// number twice. A missing counter row means number 1 was just consumed.
func (q *SequenceQ) Bump(companyID uuid.UUID, series int) (int, error) {
	var next int

	stmt := sq.Insert(sequencesTableName).
		Columns("company_id", "series", "next_number").
		Values(companyID, series, 2).
		Suffix("on conflict (company_id, series) do update set next_number = sequence_counters.next_number + 1, updated_at = current_timestamp returning next_number")

	err := q.db.Get(&next, stmt)

	return next, err
}
