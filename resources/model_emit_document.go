/*
 * GENERATED. Do not modify. Your changes might be overwritten!
 */

package resources

type EmitDocument struct {
	Key
	Attributes EmitDocumentAttributes `json:"attributes"`
}

type EmitDocumentRequest struct {
	Data EmitDocument `json:"data"`
}

type EmitDocumentAttributes struct {
	// Issuing company identifier
	CompanyId string `json:"company_id"`
	// Document series the number is drawn from
	Series int `json:"series"`
	// Nature of the operation
	OperationNature string         `json:"operation_nature"`
	Recipient       RecipientParty `json:"recipient"`
	Items           []DocumentItem `json:"items"`
	// Declared document total, decimal string
	Total string `json:"total"`
}

type RecipientParty struct {
	// CNPJ of a legal entity recipient, digits only or punctuated
	Cnpj string `json:"cnpj,omitempty"`
	// CPF of a natural person recipient
	Cpf       string `json:"cpf,omitempty"`
	LegalName string `json:"legal_name"`
	Street    string `json:"street"`
	City      string `json:"city"`
	// 7-digit IBGE city code
	CityCode string `json:"city_code"`
	Uf       string `json:"uf"`
	ZipCode  string `json:"zip_code"`
}

type DocumentItem struct {
	ProductCode string `json:"product_code"`
	Description string `json:"description"`
	// 8-digit NCM classification
	Ncm string `json:"ncm,omitempty"`
	// 4-digit CFOP operation code
	Cfop string `json:"cfop"`
	Unit string `json:"unit"`
	// Decimal strings so precision survives transport
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}
