package nfe

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

// Party is an issuer or recipient of a fiscal document.
type Party struct {
	CNPJ      string
	CPF       string // recipients may be individuals; mutually exclusive with CNPJ
	LegalName string
	IE        string // state registration, issuer only
	Street    string
	City      string
	CityCode  string // IBGE municipality code
	UF        string
	ZipCode   string
}

// LineItem is a single product line. Total is declared by the caller and
// reconciled against Quantity * UnitPrice during the build.
type LineItem struct {
	ProductCode string
	Description string
	NCM         string
	CFOP        string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Meta carries document identification: everything of the access key plus
// the operation nature and environment.
type Meta struct {
	AccessKey       string
	Series          int
	Number          int
	IssuedAt        time.Time
	OperationNature string
	Environment     types.Environment
	EmissionType    int
	Code            int // cNF segment of the access key
}

// Document is the full input of the XML builder.
type Document struct {
	Issuer    Party
	Recipient Party
	Items     []LineItem
	Total     decimal.Decimal
	Meta      Meta
}
