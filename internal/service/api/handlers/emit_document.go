package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/distributed_lab/ape"
	"gitlab.com/distributed_lab/ape/problems"

	"github.com/brfiscal/nfe-issuer-svc/internal/issuer"
	"github.com/brfiscal/nfe-issuer-svc/internal/nfe"
	"github.com/brfiscal/nfe-issuer-svc/internal/service/api"
	"github.com/brfiscal/nfe-issuer-svc/internal/service/api/requests"
	"github.com/brfiscal/nfe-issuer-svc/resources"
)

// EmitDocument runs the whole emission pipeline synchronously. A SEFAZ
// rejection is not an HTTP error: the document comes back in error status
// with the rejection code and message on it.
func EmitDocument(w http.ResponseWriter, r *http.Request) {
	log := api.Log(r)

	req, err := requests.NewEmitDocumentRequest(r)
	if err != nil {
		log.WithError(err).Error("failed to create new emit document request")
		ape.RenderErr(w, problems.BadRequest(err)...)
		return
	}

	emitReq, err := toEmitRequest(req)
	if err != nil {
		ape.RenderErr(w, problems.BadRequest(err)...)
		return
	}

	outcome, err := api.Orchestrator(r).Emit(r.Context(), emitReq)
	if outcome == nil {
		if err != nil {
			log.WithError(err).Error("emission failed before a document was persisted")
		}
		ape.RenderErr(w, problems.InternalError())
		return
	}
	if err != nil {
		log.WithError(err).Warn("emission did not authorize")
	}

	ape.Render(w, newFiscalDocumentResponse(outcome.Document, outcome.CertificateNearExpiry))
}

func toEmitRequest(req resources.EmitDocumentRequest) (issuer.EmitRequest, error) {
	attrs := req.Data.Attributes

	companyID, err := uuid.Parse(attrs.CompanyId)
	if err != nil {
		return issuer.EmitRequest{}, err
	}
	total, err := decimal.NewFromString(attrs.Total)
	if err != nil {
		return issuer.EmitRequest{}, err
	}

	items := make([]nfe.LineItem, 0, len(attrs.Items))
	for _, item := range attrs.Items {
		quantity, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			return issuer.EmitRequest{}, err
		}
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return issuer.EmitRequest{}, err
		}
		itemTotal, err := decimal.NewFromString(item.Total)
		if err != nil {
			return issuer.EmitRequest{}, err
		}
		items = append(items, nfe.LineItem{
			ProductCode: item.ProductCode,
			Description: item.Description,
			NCM:         item.Ncm,
			CFOP:        item.Cfop,
			Unit:        item.Unit,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			Total:       itemTotal,
		})
	}

	return issuer.EmitRequest{
		CompanyID:       companyID,
		Series:          attrs.Series,
		OperationNature: attrs.OperationNature,
		Recipient: nfe.Party{
			CNPJ:      attrs.Recipient.Cnpj,
			CPF:       attrs.Recipient.Cpf,
			LegalName: attrs.Recipient.LegalName,
			Street:    attrs.Recipient.Street,
			City:      attrs.Recipient.City,
			CityCode:  attrs.Recipient.CityCode,
			UF:        attrs.Recipient.Uf,
			ZipCode:   attrs.Recipient.ZipCode,
		},
		Items: items,
		Total: total,
	}, nil
}
