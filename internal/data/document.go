package data

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

type FiscalDocumentQ interface {
	New() FiscalDocumentQ
	Get() (*FiscalDocument, error)
	Select() ([]FiscalDocument, error)
	Insert(FiscalDocument) (*FiscalDocument, error)
	Update(FiscalDocument) (*FiscalDocument, error)
	FilterByID(uuid.UUID) FiscalDocumentQ
	FilterByAccessKey(string) FiscalDocumentQ
	FilterByStatus(types.DocumentStatus) FiscalDocumentQ
	FilterUpdatedBefore(time.Time) FiscalDocumentQ
	ResetFilters() FiscalDocumentQ
}

type LineItemQ interface {
	New() LineItemQ
	Insert(LineItem) (*LineItem, error)
	SelectByDocument(uuid.UUID) ([]LineItem, error)
}

// FiscalDocument is the persisted NFe. Immutable once authorized except for
// the cancellation fields.
type FiscalDocument struct {
	ID                  uuid.UUID            `db:"id" structs:"id"`
	CompanyID           uuid.UUID            `db:"company_id" structs:"company_id"`
	Number              int                  `db:"number" structs:"number"`
	Series              int                  `db:"series" structs:"series"`
	Status              types.DocumentStatus `db:"status" structs:"status"`
	IssuedAt            time.Time            `db:"issued_at" structs:"issued_at,omitnested"`
	OperationNature     string               `db:"operation_nature" structs:"operation_nature"`
	Total               decimal.Decimal      `db:"total" structs:"total,omitnested"`
	AccessKey           *string              `db:"access_key" structs:"access_key"`
	Protocol            *string              `db:"protocol" structs:"protocol"`
	SignedXML           *string              `db:"signed_xml" structs:"signed_xml"`
	RejectionCode       *string              `db:"rejection_code" structs:"rejection_code"`
	RejectionMessage    *string              `db:"rejection_message" structs:"rejection_message"`
	CancelJustification *string              `db:"cancel_justification" structs:"cancel_justification"`
	CancelProtocol      *string              `db:"cancel_protocol" structs:"cancel_protocol"`
	CreatedAt           time.Time            `db:"created_at" structs:"-"`
	UpdatedAt           time.Time            `db:"updated_at" structs:"-"`
}

type LineItem struct {
	ID          uuid.UUID       `db:"id" structs:"id"`
	DocumentID  uuid.UUID       `db:"document_id" structs:"document_id"`
	ProductCode string          `db:"product_code" structs:"product_code"`
	Description string          `db:"description" structs:"description"`
	NCM         string          `db:"ncm" structs:"ncm"`
	CFOP        string          `db:"cfop" structs:"cfop"`
	Quantity    decimal.Decimal `db:"quantity" structs:"quantity,omitnested"`
	UnitPrice   decimal.Decimal `db:"unit_price" structs:"unit_price,omitnested"`
	Total       decimal.Decimal `db:"total" structs:"total,omitnested"`
}
