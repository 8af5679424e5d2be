package requests

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/brfiscal/nfe-issuer-svc/resources"
)

type CancelDocumentRequest struct {
	DocumentID    uuid.UUID
	Justification string
}

func NewCancelDocumentRequest(r *http.Request) (CancelDocumentRequest, error) {
	var request CancelDocumentRequest

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return request, validation.Errors{
			"id": validation.NewError("err_uuid", "document id must be a valid UUID"),
		}.Filter()
	}
	request.DocumentID = id

	var body resources.CancelDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return request, validation.NewError("err_decode", "failed to unmarshal cancel document request")
	}
	request.Justification = body.Data.Attributes.Justification

	return request, validation.Errors{
		"/data/attributes/justification": validation.Validate(
			request.Justification, validation.Required, validation.RuneLength(15, 255),
		),
	}.Filter()
}
