package data

import (
	"time"

	"github.com/google/uuid"

	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

type CertificateQ interface {
	New() CertificateQ
	Get() (*DigitalCertificate, error)
	Select() ([]DigitalCertificate, error)
	Insert(DigitalCertificate) (*DigitalCertificate, error)
	// Deactivate clears the active flag on every certificate of a company.
	// Superseded certificates are kept, never deleted.
	Deactivate(companyID uuid.UUID) error
	FilterByCompany(uuid.UUID) CertificateQ
	FilterActive() CertificateQ
	ResetFilters() CertificateQ
}

// DigitalCertificate is certificate metadata. The PKCS#12 bytes and the
// password live in the vault under VaultHandle; the database never sees
// either.
type DigitalCertificate struct {
	ID          uuid.UUID             `db:"id" structs:"id"`
	CompanyID   uuid.UUID             `db:"company_id" structs:"company_id"`
	VaultHandle string                `db:"vault_handle" structs:"vault_handle"`
	Type        types.CertificateType `db:"type" structs:"type"`
	OwnerCNPJ   string                `db:"owner_cnpj" structs:"owner_cnpj"`
	NotBefore   time.Time             `db:"not_before" structs:"not_before,omitnested"`
	NotAfter    time.Time             `db:"not_after" structs:"not_after,omitnested"`
	Active      bool                  `db:"active" structs:"active"`
	CreatedAt   time.Time             `db:"created_at" structs:"-"`
	UpdatedAt   time.Time             `db:"updated_at" structs:"-"`
}

// Usable reports whether the certificate can sign right now.
func (c DigitalCertificate) Usable(now time.Time) bool {
	return c.Active && !now.Before(c.NotBefore) && !now.After(c.NotAfter)
}
