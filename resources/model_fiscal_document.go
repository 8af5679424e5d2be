/*
 * GENERATED. Do not modify. Your changes might be overwritten!
 */

package resources

import "time"

type FiscalDocument struct {
	Key
	Attributes FiscalDocumentAttributes `json:"attributes"`
}

type FiscalDocumentResponse struct {
	Data FiscalDocument `json:"data"`
}

type FiscalDocumentAttributes struct {
	// Sequential document number within the series
	Number int `json:"number"`
	// Document series
	Series int `json:"series"`
	// One of: draft, processing, authorized, error, cancelled
	Status string `json:"status"`
	// Nature of the operation, e.g. sale
	OperationNature string `json:"operation_nature"`
	// Document total, decimal string with two places
	Total    string    `json:"total"`
	IssuedAt time.Time `json:"issued_at"`
	// 44-digit access key, present once the document was submitted
	AccessKey *string `json:"access_key,omitempty"`
	// SEFAZ authorization protocol
	Protocol *string `json:"protocol,omitempty"`
	// SEFAZ rejection code when status is error
	RejectionCode    *string `json:"rejection_code,omitempty"`
	RejectionMessage *string `json:"rejection_message,omitempty"`
	// Cancellation event protocol when status is cancelled
	CancelProtocol      *string `json:"cancel_protocol,omitempty"`
	CancelJustification *string `json:"cancel_justification,omitempty"`
	// Set when the signing certificate enters its last 30 days
	CertificateNearExpiry bool `json:"certificate_near_expiry,omitempty"`
}
