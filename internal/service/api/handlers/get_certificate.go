package handlers

import (
	"net/http"
	"time"

	"gitlab.com/distributed_lab/ape"
	"gitlab.com/distributed_lab/ape/problems"

	"github.com/brfiscal/nfe-issuer-svc/internal/certificate"
	"github.com/brfiscal/nfe-issuer-svc/internal/service/api"
	"github.com/brfiscal/nfe-issuer-svc/internal/service/api/requests"
)

// GetCertificate returns the active certificate metadata of a company.
func GetCertificate(w http.ResponseWriter, r *http.Request) {
	log := api.Log(r)

	companyID, err := requests.NewGetCertificateRequest(r)
	if err != nil {
		ape.RenderErr(w, problems.BadRequest(err)...)
		return
	}

	record, err := api.CertificateQ(r).FilterByCompany(companyID).FilterActive().Get()
	if err != nil {
		log.WithError(err).Error("failed to get certificate")
		ape.RenderErr(w, problems.InternalError())
		return
	}
	if record == nil {
		ape.RenderErr(w, problems.NotFound())
		return
	}

	nearExpiry := time.Until(record.NotAfter) < certificate.NearExpiryWindow

	ape.Render(w, newCertificateResponse(*record, nearExpiry))
}
