package sefaz

import (
	"time"

	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

// SEFAZ status codes the transport layer interprets.
const (
	CodeAuthorized     = "100" // Autorizado o uso da NF-e
	CodeLotProcessed   = "104" // Lote processado
	CodeCancelHomolog  = "135" // Evento registrado e vinculado a NF-e
	CodeLocalTransport = "999" // local mapping for network/timeout/parse failures
)

// Result is the outcome of one SOAP exchange. Business rejections are not
// errors: they come back as a Result carrying the SEFAZ code and message.
// Local failures (endpoint missing, network, short justification) also come
// back as a Result so batch callers can log and continue.
type Result struct {
	Code      string
	Message   string
	Protocol  string
	AccessKey string
	Raw       []byte
	Elapsed   time.Duration
	OK        bool
	// Kind is set for failures originated locally rather than by SEFAZ.
	Kind *types.EmissionErrorKind
}

func transportFailure(err error, raw []byte, elapsed time.Duration) Result {
	return Result{
		Code:    CodeLocalTransport,
		Message: err.Error(),
		Raw:     raw,
		Elapsed: elapsed,
		Kind:    types.TransportFailureErr.Ptr(),
	}
}

func localFailure(kind types.EmissionErrorKind, message string) Result {
	return Result{
		Message: message,
		Kind:    kind.Ptr(),
	}
}
