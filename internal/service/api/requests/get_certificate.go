package requests

import (
	"net/http"

	"github.com/go-chi/chi"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

func NewGetCertificateRequest(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "company_id"))
	if err != nil {
		return uuid.Nil, validation.Errors{
			"company_id": validation.NewError("err_uuid", "company id must be a valid UUID"),
		}.Filter()
	}
	return id, nil
}
