package requests

import (
	"net/http"

	"github.com/go-chi/chi"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

func NewGetDocumentRequest(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, validation.Errors{
			"id": validation.NewError("err_uuid", "document id must be a valid UUID"),
		}.Filter()
	}
	return id, nil
}
