package certificate

import (
	"crypto/x509"
	"encoding/asn1"
	"regexp"

	"github.com/brfiscal/nfe-issuer-svc/internal/fiscal"
)

// ICP-Brasil otherName carrying the legal entity CNPJ.
var oidCNPJ = asn1.ObjectIdentifier{2, 16, 76, 1, 3, 3}

var oidSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}

var cnCNPJPattern = regexp.MustCompile(`:(\d{14})$`)

// ExtractOwnerCNPJ pulls the owner CNPJ out of an ICP-Brasil certificate.
// It prefers the CNPJ otherName in the subject alternative name extension
// and falls back to the "LEGAL NAME:cnpj" convention in the common name.
// Returns "" when neither source yields a well-formed CNPJ.
func ExtractOwnerCNPJ(cert *x509.Certificate) string {
	if cnpj := cnpjFromSAN(cert); cnpj != "" {
		return cnpj
	}

	if m := cnCNPJPattern.FindStringSubmatch(cert.Subject.CommonName); m != nil {
		if fiscal.ValidateCNPJ(m[1]) {
			return m[1]
		}
	}

	return ""
}

func cnpjFromSAN(cert *x509.Certificate) string {
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(oidSubjectAltName) {
			continue
		}

		var seq asn1.RawValue
		if _, err := asn1.Unmarshal(ext.Value, &seq); err != nil {
			return ""
		}

		rest := seq.Bytes
		for len(rest) > 0 {
			var name asn1.RawValue
			var err error
			rest, err = asn1.Unmarshal(rest, &name)
			if err != nil {
				return ""
			}

			// otherName is context tag 0, constructed
			if name.Class != asn1.ClassContextSpecific || name.Tag != 0 || !name.IsCompound {
				continue
			}

			if cnpj := cnpjFromOtherName(name.Bytes); cnpj != "" {
				return cnpj
			}
		}
	}

	return ""
}

// cnpjFromOtherName decodes OtherName ::= SEQUENCE { type-id OID,
// value [0] EXPLICIT ANY } content already stripped of its outer tag.
func cnpjFromOtherName(content []byte) string {
	var oid asn1.ObjectIdentifier
	inner, err := asn1.Unmarshal(content, &oid)
	if err != nil || !oid.Equal(oidCNPJ) {
		return ""
	}

	var wrapper asn1.RawValue
	if _, err = asn1.Unmarshal(inner, &wrapper); err != nil {
		return ""
	}

	value := wrapper.Bytes
	// the value is usually an OCTET STRING or a printable string of digits
	var str asn1.RawValue
	if _, err = asn1.Unmarshal(value, &str); err == nil && len(str.Bytes) > 0 {
		value = str.Bytes
	}

	cnpj := fiscal.OnlyDigits(string(value))
	if len(cnpj) == 14 && fiscal.ValidateCNPJ(cnpj) {
		return cnpj
	}

	return ""
}
