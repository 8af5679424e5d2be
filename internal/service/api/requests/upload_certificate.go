package requests

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/brfiscal/nfe-issuer-svc/internal/types"
	"github.com/brfiscal/nfe-issuer-svc/resources"
)

type UploadCertificateRequest struct {
	CompanyID uuid.UUID
	Bundle    []byte
	Password  string
	Type      types.CertificateType
}

func NewUploadCertificateRequest(r *http.Request) (UploadCertificateRequest, error) {
	var request UploadCertificateRequest

	var body resources.UploadCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return request, validation.NewError("err_decode", "failed to unmarshal upload certificate request")
	}
	attrs := body.Data.Attributes

	err := validation.Errors{
		"/data/attributes/company_id": validation.Validate(
			attrs.CompanyId, validation.Required, validation.By(validUUID),
		),
		"/data/attributes/certificate": validation.Validate(
			attrs.Certificate, validation.Required,
		),
		"/data/attributes/password": validation.Validate(
			attrs.Password, validation.Required,
		),
		"/data/attributes/type": validation.Validate(
			attrs.Type, validation.Required, validation.By(validCertificateType),
		),
	}.Filter()
	if err != nil {
		return request, err
	}

	bundle, err := base64.StdEncoding.DecodeString(attrs.Certificate)
	if err != nil {
		return request, validation.Errors{
			"/data/attributes/certificate": validation.NewError("err_base64", "certificate must be base64-encoded"),
		}.Filter()
	}

	request.CompanyID = uuid.MustParse(attrs.CompanyId)
	request.Bundle = bundle
	request.Password = attrs.Password
	request.Type, _ = types.IsValidCertificateType(attrs.Type)

	return request, nil
}

func validCertificateType(value interface{}) error {
	s, _ := value.(string)
	if _, ok := types.IsValidCertificateType(s); !ok {
		return validation.NewError("err_certificate_type", "type must be A1 or A3")
	}
	return nil
}
