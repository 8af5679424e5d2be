package types

import (
	"fmt"
)

type EmissionErrorKind uint8

const (
	// CertificateNotFoundErr is the error kind for a company with no active certificate
	CertificateNotFoundErr EmissionErrorKind = iota
	// CertificateParseErr is the error kind for a malformed PKCS#12 container
	CertificateParseErr
	// CertificateWrongPasswordErr is the error kind for a PKCS#12 password mismatch
	CertificateWrongPasswordErr
	// CertificateExpiredErr is the error kind for a certificate outside its validity window
	CertificateExpiredErr
	// InvalidTotalsErr is the error kind for a declared total that does not match the line items
	InvalidTotalsErr
	// InvalidLineItemErr is the error kind for a line item failing CFOP/quantity/price validation
	InvalidLineItemErr
	// SigningFailedErr is the error kind for an XML signature failure
	SigningFailedErr
	// EndpointNotConfiguredErr is the error kind for a missing (environment, UF) endpoint entry
	EndpointNotConfiguredErr
	// TransportFailureErr is the error kind for network/timeout/malformed-response failures
	TransportFailureErr
	// SefazRejectionErr is the error kind for a business rejection returned by SEFAZ
	SefazRejectionErr
	// InvalidStateTransitionErr is the error kind for an illegal document lifecycle step
	InvalidStateTransitionErr
	// JustificationTooShortErr is the error kind for a cancellation justification under 15 characters
	JustificationTooShortErr
)

func (e EmissionErrorKind) String() string {
	switch e {
	case CertificateNotFoundErr:
		return "certificate not found"
	case CertificateParseErr:
		return "certificate parse error"
	case CertificateWrongPasswordErr:
		return "certificate wrong password"
	case CertificateExpiredErr:
		return "certificate expired"
	case InvalidTotalsErr:
		return "invalid totals"
	case InvalidLineItemErr:
		return "invalid line item"
	case SigningFailedErr:
		return "signing failed"
	case EndpointNotConfiguredErr:
		return "endpoint not configured"
	case TransportFailureErr:
		return "transport failure"
	case SefazRejectionErr:
		return "rejected by SEFAZ"
	case InvalidStateTransitionErr:
		return "invalid state transition"
	case JustificationTooShortErr:
		return "justification too short"
	default:
		return "Unknown"
	}
}

func (e EmissionErrorKind) Ptr() *EmissionErrorKind {
	return &e
}

// EmissionError carries the failure class alongside the underlying cause so
// callers can distinguish local validation, certificate problems, government
// rejections and network failures.
type EmissionError struct {
	Kind    EmissionErrorKind
	Message error
}

func (e *EmissionError) Error() string {
	if e.Message == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EmissionError) Unwrap() error {
	return e.Message
}

func (e *EmissionError) GetOptionalMessage() *string {
	if e.Message != nil {
		msg := e.Message.Error()
		return &msg
	}
	return nil
}

func (e *EmissionError) GetOptionalKind() *EmissionErrorKind {
	return e.Kind.Ptr()
}

func NewEmissionError(kind EmissionErrorKind, cause error) *EmissionError {
	return &EmissionError{Kind: kind, Message: cause}
}
