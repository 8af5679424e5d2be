/*
 * GENERATED. Do not modify. Your changes might be overwritten!
 */

package resources

import "time"

type DigitalCertificate struct {
	Key
	Attributes DigitalCertificateAttributes `json:"attributes"`
}

type DigitalCertificateResponse struct {
	Data DigitalCertificate `json:"data"`
}

// DigitalCertificateAttributes is metadata only. The bundle and password
// never appear in a response.
type DigitalCertificateAttributes struct {
	CompanyId string `json:"company_id"`
	// A1 or A3
	Type      string    `json:"type"`
	OwnerCnpj string    `json:"owner_cnpj"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
	Active    bool      `json:"active"`
	// Set when the certificate enters its last 30 days
	NearExpiry bool `json:"near_expiry,omitempty"`
}
