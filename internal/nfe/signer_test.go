package nfe

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brfiscal/nfe-issuer-svc/internal/certificate"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

func testKeyMaterial(t *testing.T) *certificate.KeyMaterial {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "EMPRESA DEMO LTDA:11222333000181"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &certificate.KeyMaterial{Certificate: cert, Key: key}
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	km := testKeyMaterial(t)

	unsigned, err := NewBuilder().Build(sampleDocument(t))
	require.NoError(t, err)

	signed, err := NewSigner().Sign(unsigned, km)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(signed))

	root := doc.Root()
	inf := root.SelectElement("infNFe")
	require.NotNil(t, inf)

	sig := root.SelectElement("Signature")
	require.NotNil(t, sig, "Signature must be appended inside NFe")

	c14n := dsig.MakeC14N10RecCanonicalizer()

	// digest over canonical infNFe must match DigestValue
	canonInf, err := c14n.Canonicalize(inf)
	require.NoError(t, err)
	wantDigest := sha1.Sum(canonInf)

	digestValue := sig.FindElement("SignedInfo/Reference/DigestValue")
	require.NotNil(t, digestValue)
	gotDigest, err := base64.StdEncoding.DecodeString(digestValue.Text())
	require.NoError(t, err)
	assert.Equal(t, wantDigest[:], gotDigest)

	// RSA-SHA1 over canonical SignedInfo must verify with the certificate key
	signedInfo := sig.SelectElement("SignedInfo")
	require.NotNil(t, signedInfo)
	canonSignedInfo, err := c14n.Canonicalize(signedInfo)
	require.NoError(t, err)
	hashed := sha1.Sum(canonSignedInfo)

	sigValue := sig.SelectElement("SignatureValue")
	require.NotNil(t, sigValue)
	sigBytes, err := base64.StdEncoding.DecodeString(sigValue.Text())
	require.NoError(t, err)

	assert.NoError(t, rsa.VerifyPKCS1v15(&km.Key.PublicKey, crypto.SHA1, hashed[:], sigBytes))

	// certificate travels in KeyInfo
	certEl := sig.FindElement("KeyInfo/X509Data/X509Certificate")
	require.NotNil(t, certEl)
	certDER, err := base64.StdEncoding.DecodeString(certEl.Text())
	require.NoError(t, err)
	assert.Equal(t, km.Certificate.Raw, certDER)
}

func TestSignIsAdditive(t *testing.T) {
	km := testKeyMaterial(t)

	unsigned, err := NewBuilder().Build(sampleDocument(t))
	require.NoError(t, err)

	signed, err := NewSigner().Sign(unsigned, km)
	require.NoError(t, err)

	before := etree.NewDocument()
	require.NoError(t, before.ReadFromString(unsigned))
	after := etree.NewDocument()
	require.NoError(t, after.ReadFromString(signed))

	c14n := dsig.MakeC14N10RecCanonicalizer()
	canonBefore, err := c14n.Canonicalize(before.Root().SelectElement("infNFe"))
	require.NoError(t, err)
	canonAfter, err := c14n.Canonicalize(after.Root().SelectElement("infNFe"))
	require.NoError(t, err)

	assert.Equal(t, canonBefore, canonAfter, "signing must not mutate infNFe")
}

func TestSignFailureNeverReturnsUnsignedXML(t *testing.T) {
	km := testKeyMaterial(t)

	out, err := NewSigner().Sign("<Envelope><other/></Envelope>", km)
	require.Error(t, err)
	assert.Empty(t, out)

	var emissionErr *types.EmissionError
	require.ErrorAs(t, err, &emissionErr)
	assert.Equal(t, types.SigningFailedErr, emissionErr.Kind)
}

func TestSignRejectsMissingKeyMaterial(t *testing.T) {
	unsigned, err := NewBuilder().Build(sampleDocument(t))
	require.NoError(t, err)

	out, err := NewSigner().Sign(unsigned, nil)
	require.Error(t, err)
	assert.Empty(t, out)
}
