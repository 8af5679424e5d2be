package data

import (
	"time"

	"github.com/google/uuid"

	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

type CompanyQ interface {
	New() CompanyQ
	Get() (*Company, error)
	Insert(Company) (*Company, error)
	FilterByID(uuid.UUID) CompanyQ
	FilterByCNPJ(string) CompanyQ
	ResetFilters() CompanyQ
}

type Company struct {
	ID          uuid.UUID         `db:"id" structs:"id"`
	CNPJ        string            `db:"cnpj" structs:"cnpj"`
	LegalName   string            `db:"legal_name" structs:"legal_name"`
	IE          string            `db:"ie" structs:"ie"`
	Street      string            `db:"street" structs:"street"`
	City        string            `db:"city" structs:"city"`
	CityCode    string            `db:"city_code" structs:"city_code"`
	UF          string            `db:"uf" structs:"uf"`
	ZipCode     string            `db:"zip_code" structs:"zip_code"`
	Environment types.Environment `db:"environment" structs:"environment"`
	CreatedAt   time.Time         `db:"created_at" structs:"-"`
	UpdatedAt   time.Time         `db:"updated_at" structs:"-"`
}
