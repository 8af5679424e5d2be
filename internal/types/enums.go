package types

// DocumentStatus is the lifecycle state of a fiscal document.
type DocumentStatus string

const (
	StatusDraft      DocumentStatus = "draft"
	StatusProcessing DocumentStatus = "processing"
	StatusAuthorized DocumentStatus = "authorized"
	StatusError      DocumentStatus = "error"
	StatusCancelled  DocumentStatus = "cancelled"
)

var documentStatusMap = map[string]DocumentStatus{
	"draft":      StatusDraft,
	"processing": StatusProcessing,
	"authorized": StatusAuthorized,
	"error":      StatusError,
	"cancelled":  StatusCancelled,
}

func (s DocumentStatus) String() string {
	return string(s)
}

func IsValidDocumentStatus(s string) (DocumentStatus, bool) {
	status, ok := documentStatusMap[s]
	return status, ok
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. Transitions are monotonic: authorized and cancelled documents never
// go back to draft or processing.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusAuthorized || next == StatusError
	case StatusAuthorized:
		return next == StatusCancelled
	default:
		return false
	}
}

// Environment selects the SEFAZ environment a company emits against.
type Environment string

const (
	EnvHomologacao Environment = "homologacao"
	EnvProducao    Environment = "producao"
)

var environmentMap = map[string]Environment{
	"homologacao": EnvHomologacao,
	"producao":    EnvProducao,
}

func (e Environment) String() string {
	return string(e)
}

func IsValidEnvironment(e string) (Environment, bool) {
	env, ok := environmentMap[e]
	return env, ok
}

// TpAmb returns the wire value SEFAZ expects: 1 for production, 2 for
// homologation.
func (e Environment) TpAmb() string {
	if e == EnvProducao {
		return "1"
	}
	return "2"
}

// CertificateType distinguishes software (A1) from hardware (A3)
// certificates. Only A1 material can be parsed server-side.
type CertificateType string

const (
	CertificateA1 CertificateType = "A1"
	CertificateA3 CertificateType = "A3"
)

var certificateTypeMap = map[string]CertificateType{
	"A1": CertificateA1,
	"A3": CertificateA3,
}

func (c CertificateType) String() string {
	return string(c)
}

func IsValidCertificateType(c string) (CertificateType, bool) {
	t, ok := certificateTypeMap[c]
	return t, ok
}
