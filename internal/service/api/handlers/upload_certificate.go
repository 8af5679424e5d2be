package handlers

import (
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/jsonapi"
	"github.com/google/uuid"
	"gitlab.com/distributed_lab/ape"
	"gitlab.com/distributed_lab/ape/problems"

	"github.com/brfiscal/nfe-issuer-svc/internal/certificate"
	"github.com/brfiscal/nfe-issuer-svc/internal/data"
	"github.com/brfiscal/nfe-issuer-svc/internal/fiscal"
	"github.com/brfiscal/nfe-issuer-svc/internal/service/api"
	"github.com/brfiscal/nfe-issuer-svc/internal/service/api/requests"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

// UploadCertificate validates a PKCS#12 bundle, stores it in the vault and
// activates it for the company. Any previously active certificate is
// deactivated in the same request. The bundle and password go straight to
// the vault; only metadata reaches the database.
func UploadCertificate(w http.ResponseWriter, r *http.Request) {
	log := api.Log(r)

	req, err := requests.NewUploadCertificateRequest(r)
	if err != nil {
		log.WithError(err).Error("failed to create new upload certificate request")
		ape.RenderErr(w, problems.BadRequest(err)...)
		return
	}

	if req.Type == types.CertificateA3 {
		ape.RenderErr(w, problems.BadRequest(validation.Errors{
			"/data/attributes/type": validation.NewError(
				"err_a3", "A3 hardware certificates cannot be parsed server-side"),
		})...)
		return
	}

	company, err := api.CompanyQ(r).FilterByID(req.CompanyID).Get()
	if err != nil {
		log.WithError(err).Error("failed to get company")
		ape.RenderErr(w, problems.InternalError())
		return
	}
	if company == nil {
		ape.RenderErr(w, problems.NotFound())
		return
	}

	var jsonError []*jsonapi.ErrorObject

	material, err := certificate.NewParser().Parse(req.Bundle, req.Password)
	if err != nil {
		var emissionErr *types.EmissionError
		field := "certificate"
		if errors.As(err, &emissionErr) && emissionErr.Kind == types.CertificateWrongPasswordErr {
			field = "password"
		}
		log.WithError(err).Warn("rejected certificate bundle")
		jsonError = problems.BadRequest(validation.Errors{
			"/data/attributes/" + field: validation.NewError("err_certificate", err.Error()),
		})
		ape.RenderErr(w, jsonError...)
		return
	}

	validity := certificate.Validate(material.Certificate, time.Now())
	if !validity.Valid {
		ape.RenderErr(w, problems.BadRequest(validation.Errors{
			"/data/attributes/certificate": validation.NewError("err_expired", validity.Reason),
		})...)
		return
	}

	ownerCNPJ := certificate.ExtractOwnerCNPJ(material.Certificate)
	if ownerCNPJ != "" && ownerCNPJ != fiscal.OnlyDigits(company.CNPJ) {
		ape.RenderErr(w, problems.BadRequest(validation.Errors{
			"/data/attributes/certificate": validation.NewError(
				"err_owner", "certificate CNPJ does not belong to the company"),
		})...)
		return
	}

	id := uuid.New()
	handle := "certificates/" + id.String()
	if err = api.CertificateVault(r).Store(r.Context(), handle, req.Bundle, req.Password); err != nil {
		log.WithError(err).Error("failed to store bundle in vault")
		ape.RenderErr(w, problems.InternalError())
		return
	}

	if err = api.CertificateQ(r).Deactivate(req.CompanyID); err != nil {
		log.WithError(err).Error("failed to deactivate previous certificates")
		ape.RenderErr(w, problems.InternalError())
		return
	}

	record, err := api.CertificateQ(r).Insert(data.DigitalCertificate{
		ID:          id,
		CompanyID:   req.CompanyID,
		VaultHandle: handle,
		Type:        req.Type,
		OwnerCNPJ:   ownerCNPJ,
		NotBefore:   material.Certificate.NotBefore,
		NotAfter:    material.Certificate.NotAfter,
		Active:      true,
	})
	if err != nil {
		log.WithError(err).Error("failed to insert certificate metadata")
		ape.RenderErr(w, problems.InternalError())
		return
	}

	ape.Render(w, newCertificateResponse(*record, validity.NearExpiry))
}
