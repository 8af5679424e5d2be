package handlers

import (
	"net/http"

	"gitlab.com/distributed_lab/ape"
	"gitlab.com/distributed_lab/ape/problems"

	"github.com/brfiscal/nfe-issuer-svc/internal/service/api"
	"github.com/brfiscal/nfe-issuer-svc/internal/service/api/requests"
)

func GetDocument(w http.ResponseWriter, r *http.Request) {
	log := api.Log(r)

	id, err := requests.NewGetDocumentRequest(r)
	if err != nil {
		ape.RenderErr(w, problems.BadRequest(err)...)
		return
	}

	doc, err := api.FiscalDocumentQ(r).FilterByID(id).Get()
	if err != nil {
		log.WithError(err).Error("failed to get document")
		ape.RenderErr(w, problems.InternalError())
		return
	}
	if doc == nil {
		ape.RenderErr(w, problems.NotFound())
		return
	}

	ape.Render(w, newFiscalDocumentResponse(*doc, false))
}
