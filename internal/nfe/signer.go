package nfe

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" // the NFe 4.00 signature profile mandates rsa-sha1
	"encoding/base64"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/brfiscal/nfe-issuer-svc/internal/certificate"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

const (
	algC14N      = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	algRSASHA1   = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	algEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	algSHA1      = "http://www.w3.org/2000/09/xmldsig#sha1"
)

// Signer attaches the government-mandated XML-DSig envelope to an NFe
// document. Signing is additive: the infNFe content is never altered, and a
// failure is always an error, never a silent fall-through to unsigned XML.
type Signer struct{}

func NewSigner() Signer {
	return Signer{}
}

// Sign canonicalizes infNFe, digests it, signs the canonical SignedInfo with
// the certificate's RSA key and appends the Signature element inside NFe.
func (Signer) Sign(xmlStr string, km *certificate.KeyMaterial) (string, error) {
	if km == nil || km.Key == nil || km.Certificate == nil {
		return "", types.NewEmissionError(types.SigningFailedErr, errors.New("key material is incomplete"))
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlStr); err != nil {
		return "", types.NewEmissionError(types.SigningFailedErr, errors.Wrap(err, "failed to parse document"))
	}

	root := doc.Root()
	if root == nil || root.Tag != "NFe" {
		return "", types.NewEmissionError(types.SigningFailedErr, errors.New("document root is not NFe"))
	}

	inf := root.SelectElement("infNFe")
	if inf == nil {
		return "", types.NewEmissionError(types.SigningFailedErr, errors.New("infNFe element not found"))
	}

	idAttr := inf.SelectAttr("Id")
	if idAttr == nil || idAttr.Value == "" {
		return "", types.NewEmissionError(types.SigningFailedErr, errors.New("infNFe carries no Id"))
	}

	sig, err := BuildSignature(inf, idAttr.Value, km)
	if err != nil {
		return "", types.NewEmissionError(types.SigningFailedErr, err)
	}
	root.AddChild(sig)

	doc.WriteSettings.CanonicalEndTags = true
	signed, err := doc.WriteToString()
	if err != nil {
		return "", types.NewEmissionError(types.SigningFailedErr, errors.Wrap(err, "failed to serialize signed document"))
	}
	return signed, nil
}

// BuildSignature canonicalizes the referenced element and returns a detached
// Signature element for it. The cancellation event signs its infEvento with
// the same profile, so this is shared.
func BuildSignature(el *etree.Element, id string, km *certificate.KeyMaterial) (*etree.Element, error) {
	c14n := dsig.MakeC14N10RecCanonicalizer()

	canon, err := c14n.Canonicalize(el)
	if err != nil {
		return nil, errors.Wrap(err, "failed to canonicalize referenced element")
	}
	digest := sha1.Sum(canon)

	sig := etree.NewElement("Signature")
	sig.CreateAttr("xmlns", dsig.Namespace)

	signedInfo := sig.CreateElement("SignedInfo")
	signedInfo.CreateElement("CanonicalizationMethod").CreateAttr("Algorithm", algC14N)
	signedInfo.CreateElement("SignatureMethod").CreateAttr("Algorithm", algRSASHA1)

	ref := signedInfo.CreateElement("Reference")
	ref.CreateAttr("URI", "#"+id)
	transforms := ref.CreateElement("Transforms")
	transforms.CreateElement("Transform").CreateAttr("Algorithm", algEnveloped)
	transforms.CreateElement("Transform").CreateAttr("Algorithm", algC14N)
	ref.CreateElement("DigestMethod").CreateAttr("Algorithm", algSHA1)
	ref.CreateElement("DigestValue").SetText(base64.StdEncoding.EncodeToString(digest[:]))

	canonSignedInfo, err := c14n.Canonicalize(signedInfo)
	if err != nil {
		return nil, errors.Wrap(err, "failed to canonicalize SignedInfo")
	}

	hashed := sha1.Sum(canonSignedInfo)
	sigBytes, err := rsa.SignPKCS1v15(rand.Reader, km.Key, crypto.SHA1, hashed[:])
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign SignedInfo")
	}

	sig.CreateElement("SignatureValue").SetText(base64.StdEncoding.EncodeToString(sigBytes))

	keyInfo := sig.CreateElement("KeyInfo")
	x509Data := keyInfo.CreateElement("X509Data")
	x509Data.CreateElement("X509Certificate").
		SetText(base64.StdEncoding.EncodeToString(km.Certificate.Raw))

	return sig, nil
}
