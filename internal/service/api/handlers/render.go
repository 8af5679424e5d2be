package handlers

import (
	"github.com/brfiscal/nfe-issuer-svc/internal/data"
	"github.com/brfiscal/nfe-issuer-svc/resources"
)

func newFiscalDocumentResponse(doc data.FiscalDocument, nearExpiry bool) resources.FiscalDocumentResponse {
	return resources.FiscalDocumentResponse{
		Data: resources.FiscalDocument{
			Key: resources.NewKey(doc.ID.String(), resources.FISCAL_DOCUMENT),
			Attributes: resources.FiscalDocumentAttributes{
				Number:                doc.Number,
				Series:                doc.Series,
				Status:                doc.Status.String(),
				OperationNature:       doc.OperationNature,
				Total:                 doc.Total.StringFixed(2),
				IssuedAt:              doc.IssuedAt,
				AccessKey:             doc.AccessKey,
				Protocol:              doc.Protocol,
				RejectionCode:         doc.RejectionCode,
				RejectionMessage:      doc.RejectionMessage,
				CancelProtocol:        doc.CancelProtocol,
				CancelJustification:   doc.CancelJustification,
				CertificateNearExpiry: nearExpiry,
			},
		},
	}
}

func newCertificateResponse(cert data.DigitalCertificate, nearExpiry bool) resources.DigitalCertificateResponse {
	return resources.DigitalCertificateResponse{
		Data: resources.DigitalCertificate{
			Key: resources.NewKey(cert.ID.String(), resources.DIGITAL_CERTIFICATE),
			Attributes: resources.DigitalCertificateAttributes{
				CompanyId:  cert.CompanyID.String(),
				Type:       cert.Type.String(),
				OwnerCnpj:  cert.OwnerCNPJ,
				NotBefore:  cert.NotBefore,
				NotAfter:   cert.NotAfter,
				Active:     cert.Active,
				NearExpiry: nearExpiry,
			},
		},
	}
}
