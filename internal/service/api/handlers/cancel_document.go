package handlers

import (
	"errors"
	"net/http"

	"gitlab.com/distributed_lab/ape"
	"gitlab.com/distributed_lab/ape/problems"

	"github.com/brfiscal/nfe-issuer-svc/internal/service/api"
	"github.com/brfiscal/nfe-issuer-svc/internal/service/api/requests"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

func CancelDocument(w http.ResponseWriter, r *http.Request) {
	log := api.Log(r)

	req, err := requests.NewCancelDocumentRequest(r)
	if err != nil {
		log.WithError(err).Error("failed to create new cancel document request")
		ape.RenderErr(w, problems.BadRequest(err)...)
		return
	}

	doc, err := api.FiscalDocumentQ(r).FilterByID(req.DocumentID).Get()
	if err != nil {
		log.WithError(err).Error("failed to get document")
		ape.RenderErr(w, problems.InternalError())
		return
	}
	if doc == nil {
		ape.RenderErr(w, problems.NotFound())
		return
	}

	outcome, err := api.Orchestrator(r).Cancel(r.Context(), req.DocumentID, req.Justification)
	if err != nil {
		var emissionErr *types.EmissionError
		if errors.As(err, &emissionErr) {
			switch emissionErr.Kind {
			case types.InvalidStateTransitionErr:
				ape.RenderErr(w, problems.Conflict())
				return
			case types.JustificationTooShortErr:
				ape.RenderErr(w, problems.BadRequest(err)...)
				return
			}
		}
		if outcome != nil {
			// cancellation rejected, the document stays authorized
			log.WithError(err).Warn("cancellation was not homologated")
			ape.RenderErr(w, problems.Conflict())
			return
		}
		log.WithError(err).Error("failed to cancel document")
		ape.RenderErr(w, problems.InternalError())
		return
	}

	ape.Render(w, newFiscalDocumentResponse(outcome.Document, outcome.CertificateNearExpiry))
}
