package certificate

import (
	"crypto/rsa"
	"crypto/x509"

	errors2 "github.com/pkg/errors"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

// KeyMaterial is the decoded content of an A1 PKCS#12 container. It lives
// only for the duration of a single emission or cancellation call.
type KeyMaterial struct {
	Certificate *x509.Certificate
	Key         *rsa.PrivateKey
}

// Parser decodes PKCS#12 buffers into key material. It is an interface so
// the orchestrator can be tested without real certificate bytes.
type Parser interface {
	Parse(p12 []byte, password string) (*KeyMaterial, error)
}

type pkcs12Parser struct{}

func NewParser() Parser {
	return pkcs12Parser{}
}

func (pkcs12Parser) Parse(p12 []byte, password string) (*KeyMaterial, error) {
	key, cert, _, err := pkcs12.DecodeChain(p12, password)
	if err != nil {
		if errors2.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, types.NewEmissionError(types.CertificateWrongPasswordErr, err)
		}
		return nil, types.NewEmissionError(types.CertificateParseErr, err)
	}

	if cert == nil {
		return nil, types.NewEmissionError(types.CertificateParseErr,
			errors2.New("container carries no leaf certificate"))
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, types.NewEmissionError(types.CertificateParseErr,
			errors2.New("private key is not RSA"))
	}

	return &KeyMaterial{Certificate: cert, Key: rsaKey}, nil
}
