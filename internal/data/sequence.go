package data

import (
	"github.com/google/uuid"
)

// SequenceQ manages the per-(company, series) document number counter.
type SequenceQ interface {
	New() SequenceQ
	// Next returns the number the next document of the series should use
	// without consuming it. A series with no counter row starts at 1.
	Next(companyID uuid.UUID, series int) (int, error)
	// Bump consumes the current number: the counter advances by one in a
	// single atomic statement and the new next number is returned. Called
	// only after a confirmed authorization; never rolled back.
	Bump(companyID uuid.UUID, series int) (int, error)
}
