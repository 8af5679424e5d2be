package nfe

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/brfiscal/nfe-issuer-svc/internal/fiscal"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

const (
	// NamespaceNFe is the portalfiscal namespace every NFe element lives in.
	NamespaceNFe = "http://www.portalfiscal.inf.br/nfe"
	nfeVersion   = "4.00"
	appVersion   = "nfe-issuer-svc 1.0"
)

// Builder renders the NFe XML for a document. Pure: identical inputs
// (including Meta.IssuedAt and Meta.Code) produce byte-identical output.
type Builder struct{}

func NewBuilder() Builder {
	return Builder{}
}

// Build validates the document and renders the unsigned NFe XML. Line items
// failing CFOP/quantity/price checks and totals that do not reconcile at two
// decimals are hard failures.
func (Builder) Build(doc Document) (string, error) {
	if err := validateDocument(doc); err != nil {
		return "", err
	}

	tree := etree.NewDocument()
	nfe := tree.CreateElement("NFe")
	nfe.CreateAttr("xmlns", NamespaceNFe)

	inf := nfe.CreateElement("infNFe")
	inf.CreateAttr("Id", "NFe"+doc.Meta.AccessKey)
	inf.CreateAttr("versao", nfeVersion)

	buildIde(inf, doc)
	buildParty(inf, "emit", doc.Issuer, true)
	buildParty(inf, "dest", doc.Recipient, false)

	for i, item := range doc.Items {
		buildItem(inf, i+1, item)
	}

	buildTotal(inf, doc)

	tree.WriteSettings.CanonicalEndTags = true
	out, err := tree.WriteToString()
	if err != nil {
		return "", errors.Wrap(err, "failed to serialize NFe document")
	}
	return out, nil
}

func validateDocument(doc Document) error {
	if len(doc.Items) == 0 {
		return types.NewEmissionError(types.InvalidLineItemErr, errors.New("document has no line items"))
	}

	cnpj := fiscal.OnlyDigits(doc.Issuer.CNPJ)
	if !fiscal.ValidateCNPJ(cnpj) {
		return types.NewEmissionError(types.InvalidLineItemErr, errors.New("issuer CNPJ is invalid"))
	}

	sum := decimal.Zero
	for i, item := range doc.Items {
		if !fiscal.ValidateCFOP(item.CFOP) {
			return types.NewEmissionError(types.InvalidLineItemErr,
				errors.Errorf("item %d: invalid CFOP %q", i+1, item.CFOP))
		}
		if item.NCM != "" && !fiscal.ValidateNCM(item.NCM) {
			return types.NewEmissionError(types.InvalidLineItemErr,
				errors.Errorf("item %d: invalid NCM %q", i+1, item.NCM))
		}
		if !item.Quantity.IsPositive() {
			return types.NewEmissionError(types.InvalidLineItemErr,
				errors.Errorf("item %d: quantity must be positive", i+1))
		}
		if !item.UnitPrice.IsPositive() {
			return types.NewEmissionError(types.InvalidLineItemErr,
				errors.Errorf("item %d: unit price must be positive", i+1))
		}

		expected := item.Quantity.Mul(item.UnitPrice).Round(2)
		if !expected.Equal(item.Total.Round(2)) {
			return types.NewEmissionError(types.InvalidTotalsErr,
				errors.Errorf("item %d: declared total %s does not match %s", i+1, item.Total, expected))
		}

		sum = sum.Add(item.Total.Round(2))
	}

	if !sum.Round(2).Equal(doc.Total.Round(2)) {
		return types.NewEmissionError(types.InvalidTotalsErr,
			errors.Errorf("declared document total %s does not match line sum %s", doc.Total, sum))
	}

	if !fiscal.ValidateAccessKey(doc.Meta.AccessKey) {
		return types.NewEmissionError(types.InvalidLineItemErr, errors.New("access key is malformed"))
	}

	return nil
}

func buildIde(inf *etree.Element, doc Document) {
	ufCode, _ := fiscal.UFCode(doc.Issuer.UF)

	ide := inf.CreateElement("ide")
	ide.CreateElement("cUF").SetText(ufCode)
	ide.CreateElement("cNF").SetText(fmt.Sprintf("%08d", doc.Meta.Code))
	ide.CreateElement("natOp").SetText(doc.Meta.OperationNature)
	ide.CreateElement("mod").SetText(fiscal.ModelNFe)
	ide.CreateElement("serie").SetText(strconv.Itoa(doc.Meta.Series))
	ide.CreateElement("nNF").SetText(strconv.Itoa(doc.Meta.Number))
	ide.CreateElement("dhEmi").SetText(doc.Meta.IssuedAt.Format("2006-01-02T15:04:05-07:00"))
	ide.CreateElement("tpNF").SetText("1")
	ide.CreateElement("idDest").SetText("1")
	ide.CreateElement("cMunFG").SetText(doc.Issuer.CityCode)
	ide.CreateElement("tpImp").SetText("1")
	ide.CreateElement("tpEmis").SetText(strconv.Itoa(doc.Meta.EmissionType))
	ide.CreateElement("cDV").SetText(doc.Meta.AccessKey[43:])
	ide.CreateElement("tpAmb").SetText(doc.Meta.Environment.TpAmb())
	ide.CreateElement("finNFe").SetText("1")
	ide.CreateElement("indFinal").SetText("1")
	ide.CreateElement("indPres").SetText("9")
	ide.CreateElement("procEmi").SetText("0")
	ide.CreateElement("verProc").SetText(appVersion)
}

func buildParty(inf *etree.Element, tag string, p Party, issuer bool) {
	el := inf.CreateElement(tag)

	if cnpj := fiscal.OnlyDigits(p.CNPJ); cnpj != "" {
		el.CreateElement("CNPJ").SetText(cnpj)
	} else if cpf := fiscal.OnlyDigits(p.CPF); cpf != "" {
		el.CreateElement("CPF").SetText(cpf)
	}

	el.CreateElement("xNome").SetText(p.LegalName)

	if p.Street != "" || p.City != "" {
		enderTag := "enderDest"
		if issuer {
			enderTag = "enderEmit"
		}
		ender := el.CreateElement(enderTag)
		ender.CreateElement("xLgr").SetText(p.Street)
		ender.CreateElement("cMun").SetText(p.CityCode)
		ender.CreateElement("xMun").SetText(p.City)
		ender.CreateElement("UF").SetText(p.UF)
		ender.CreateElement("CEP").SetText(fiscal.OnlyDigits(p.ZipCode))
	}

	if issuer {
		el.CreateElement("IE").SetText(fiscal.OnlyDigits(p.IE))
		el.CreateElement("CRT").SetText("3")
	} else {
		el.CreateElement("indIEDest").SetText("9")
	}
}

func buildItem(inf *etree.Element, n int, item LineItem) {
	det := inf.CreateElement("det")
	det.CreateAttr("nItem", strconv.Itoa(n))

	unit := item.Unit
	if unit == "" {
		unit = "UN"
	}

	prod := det.CreateElement("prod")
	prod.CreateElement("cProd").SetText(item.ProductCode)
	prod.CreateElement("xProd").SetText(item.Description)
	if item.NCM != "" {
		prod.CreateElement("NCM").SetText(fiscal.OnlyDigits(item.NCM))
	}
	prod.CreateElement("CFOP").SetText(item.CFOP)
	prod.CreateElement("uCom").SetText(unit)
	prod.CreateElement("qCom").SetText(item.Quantity.StringFixed(4))
	prod.CreateElement("vUnCom").SetText(item.UnitPrice.StringFixed(2))
	prod.CreateElement("vProd").SetText(item.Total.StringFixed(2))
	prod.CreateElement("indTot").SetText("1")
}

func buildTotal(inf *etree.Element, doc Document) {
	total := inf.CreateElement("total")
	icms := total.CreateElement("ICMSTot")
	icms.CreateElement("vProd").SetText(doc.Total.StringFixed(2))
	icms.CreateElement("vNF").SetText(doc.Total.StringFixed(2))
}
