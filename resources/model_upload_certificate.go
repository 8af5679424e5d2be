/*
 * GENERATED. Do not modify. Your changes might be overwritten!
 */

package resources

type UploadCertificate struct {
	Key
	Attributes UploadCertificateAttributes `json:"attributes"`
}

type UploadCertificateRequest struct {
	Data UploadCertificate `json:"data"`
}

type UploadCertificateAttributes struct {
	// Owning company identifier
	CompanyId string `json:"company_id"`
	// Base64-encoded PKCS#12 bundle
	Certificate string `json:"certificate"`
	// Bundle password, stored in the vault alongside the bundle
	Password string `json:"password"`
	// A1 or A3; only A1 can be parsed server-side
	Type string `json:"type"`
}
