package requests

import (
	"encoding/json"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brfiscal/nfe-issuer-svc/internal/fiscal"
	"github.com/brfiscal/nfe-issuer-svc/resources"
)

func NewEmitDocumentRequest(r *http.Request) (request resources.EmitDocumentRequest, err error) {
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return request, validation.NewError("err_decode", "failed to unmarshal emit document request")
	}

	return request, validateEmitDocument(request)
}

func validateEmitDocument(r resources.EmitDocumentRequest) error {
	attrs := r.Data.Attributes

	errs := validation.Errors{
		"/data/attributes/company_id": validation.Validate(
			attrs.CompanyId, validation.Required, validation.By(validUUID),
		),
		"/data/attributes/series": validation.Validate(
			attrs.Series, validation.Required, validation.Min(1), validation.Max(999),
		),
		"/data/attributes/operation_nature": validation.Validate(
			attrs.OperationNature, validation.Required, validation.Length(1, 60),
		),
		"/data/attributes/items": validation.Validate(
			attrs.Items, validation.Required,
		),
		"/data/attributes/total": validation.Validate(
			attrs.Total, validation.Required, validation.By(validDecimal),
		),
		"/data/attributes/recipient/legal_name": validation.Validate(
			attrs.Recipient.LegalName, validation.Required,
		),
	}

	if attrs.Recipient.Cnpj != "" && !fiscal.ValidateCNPJ(fiscal.OnlyDigits(attrs.Recipient.Cnpj)) {
		errs["/data/attributes/recipient/cnpj"] = validation.NewError(
			"err_cnpj", "recipient CNPJ check digits do not match")
	}
	if attrs.Recipient.Cpf != "" && !fiscal.ValidateCPF(fiscal.OnlyDigits(attrs.Recipient.Cpf)) {
		errs["/data/attributes/recipient/cpf"] = validation.NewError(
			"err_cpf", "recipient CPF check digits do not match")
	}

	for i, item := range attrs.Items {
		prefix := "/data/attributes/items/" + strconv.Itoa(i)
		errs[prefix+"/cfop"] = validation.Validate(item.Cfop, validation.Required, validation.By(validCFOP))
		errs[prefix+"/quantity"] = validation.Validate(item.Quantity, validation.Required, validation.By(validDecimal))
		errs[prefix+"/unit_price"] = validation.Validate(item.UnitPrice, validation.Required, validation.By(validDecimal))
		errs[prefix+"/total"] = validation.Validate(item.Total, validation.Required, validation.By(validDecimal))
		if item.Ncm != "" && !fiscal.ValidateNCM(item.Ncm) {
			errs[prefix+"/ncm"] = validation.NewError("err_ncm", "NCM must have exactly 8 digits")
		}
	}

	return errs.Filter()
}

func validUUID(value interface{}) error {
	s, _ := value.(string)
	if _, err := uuid.Parse(s); err != nil {
		return validation.NewError("err_uuid", "must be a valid UUID")
	}
	return nil
}

func validDecimal(value interface{}) error {
	s, _ := value.(string)
	if _, err := decimal.NewFromString(s); err != nil {
		return validation.NewError("err_decimal", "must be a decimal string")
	}
	return nil
}

func validCFOP(value interface{}) error {
	s, _ := value.(string)
	if !fiscal.ValidateCFOP(s) {
		return validation.NewError("err_cfop", "CFOP must have exactly 4 digits")
	}
	return nil
}
