package certificate

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

const testCNPJ = "11222333000181"

func selfSigned(t *testing.T, template *x509.Certificate) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return cert, key
}

func baseTemplate(notBefore, notAfter time.Time) *x509.Certificate {
	return &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: "EMPRESA DEMO LTDA:" + testCNPJ,
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,
	}
}

func TestParseRoundTrip(t *testing.T) {
	now := time.Now()
	cert, key := selfSigned(t, baseTemplate(now.Add(-time.Hour), now.Add(365*24*time.Hour)))

	p12, err := pkcs12.Modern.Encode(key, cert, nil, "s3cr3t")
	require.NoError(t, err)

	material, err := NewParser().Parse(p12, "s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, cert.Raw, material.Certificate.Raw)
	assert.Equal(t, key.D, material.Key.D)
}

func TestParseWrongPassword(t *testing.T) {
	now := time.Now()
	cert, key := selfSigned(t, baseTemplate(now.Add(-time.Hour), now.Add(24*time.Hour)))

	p12, err := pkcs12.Modern.Encode(key, cert, nil, "s3cr3t")
	require.NoError(t, err)

	_, err = NewParser().Parse(p12, "wrong")
	require.Error(t, err)

	var emissionErr *types.EmissionError
	require.ErrorAs(t, err, &emissionErr)
	assert.Equal(t, types.CertificateWrongPasswordErr, emissionErr.Kind)
}

func TestParseGarbage(t *testing.T) {
	_, err := NewParser().Parse([]byte("not a pkcs12 container"), "whatever")
	require.Error(t, err)

	var emissionErr *types.EmissionError
	require.ErrorAs(t, err, &emissionErr)
	assert.Equal(t, types.CertificateParseErr, emissionErr.Kind)
}

func TestValidate(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		notBefore  time.Time
		notAfter   time.Time
		valid      bool
		nearExpiry bool
	}{
		{
			name:      "inside window",
			notBefore: now.Add(-90 * 24 * time.Hour),
			notAfter:  now.Add(180 * 24 * time.Hour),
			valid:     true,
		},
		{
			name:      "not yet valid",
			notBefore: now.Add(24 * time.Hour),
			notAfter:  now.Add(180 * 24 * time.Hour),
		},
		{
			name:      "expired",
			notBefore: now.Add(-180 * 24 * time.Hour),
			notAfter:  now.Add(-time.Hour),
		},
		{
			name:       "near expiry soft warning",
			notBefore:  now.Add(-300 * 24 * time.Hour),
			notAfter:   now.Add(10 * 24 * time.Hour),
			valid:      true,
			nearExpiry: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert, _ := selfSigned(t, baseTemplate(tt.notBefore, tt.notAfter))
			v := Validate(cert, now)
			assert.Equal(t, tt.valid, v.Valid)
			assert.Equal(t, tt.nearExpiry, v.NearExpiry)
			if !tt.valid || tt.nearExpiry {
				assert.NotEmpty(t, v.Reason)
			}
		})
	}
}

func TestExtractOwnerCNPJFromCommonName(t *testing.T) {
	now := time.Now()
	cert, _ := selfSigned(t, baseTemplate(now.Add(-time.Hour), now.Add(24*time.Hour)))

	assert.Equal(t, testCNPJ, ExtractOwnerCNPJ(cert))
}

func TestExtractOwnerCNPJFromSAN(t *testing.T) {
	sanValue := marshalCNPJOtherName(t, testCNPJ)

	now := time.Now()
	template := baseTemplate(now.Add(-time.Hour), now.Add(24*time.Hour))
	template.Subject.CommonName = "EMPRESA SEM CNPJ NO CN"
	template.ExtraExtensions = []pkix.Extension{{
		Id:    oidSubjectAltName,
		Value: sanValue,
	}}

	cert, _ := selfSigned(t, template)
	assert.Equal(t, testCNPJ, ExtractOwnerCNPJ(cert))
}

func TestExtractOwnerCNPJMissing(t *testing.T) {
	now := time.Now()
	template := baseTemplate(now.Add(-time.Hour), now.Add(24*time.Hour))
	template.Subject.CommonName = "EMPRESA SEM CNPJ"

	cert, _ := selfSigned(t, template)
	assert.Empty(t, ExtractOwnerCNPJ(cert))
}

// marshalCNPJOtherName builds a SubjectAltName extension value holding a
// single otherName with the ICP-Brasil CNPJ OID.
func marshalCNPJOtherName(t *testing.T, cnpj string) []byte {
	t.Helper()

	oidDER, err := asn1.Marshal(oidCNPJ)
	require.NoError(t, err)

	strDER, err := asn1.Marshal(cnpj)
	require.NoError(t, err)

	wrapperDER, err := asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        0,
		IsCompound: true,
		Bytes:      strDER,
	})
	require.NoError(t, err)

	otherNameDER, err := asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        0,
		IsCompound: true,
		Bytes:      append(oidDER, wrapperDER...),
	})
	require.NoError(t, err)

	sanDER, err := asn1.Marshal(asn1.RawValue{
		Tag:        asn1.TagSequence,
		IsCompound: true,
		Bytes:      otherNameDER,
	})
	require.NoError(t, err)

	return sanDER
}
