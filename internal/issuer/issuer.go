package issuer

import (
	"context"
	stderrors "errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/brfiscal/nfe-issuer-svc/internal/certificate"
	"github.com/brfiscal/nfe-issuer-svc/internal/data"
	"github.com/brfiscal/nfe-issuer-svc/internal/fiscal"
	"github.com/brfiscal/nfe-issuer-svc/internal/nfe"
	"github.com/brfiscal/nfe-issuer-svc/internal/sefaz"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
	"github.com/brfiscal/nfe-issuer-svc/internal/vault"
)

// Transport is the slice of the SEFAZ client the orchestrator needs.
type Transport interface {
	Authorize(ctx context.Context, signedXML string, env types.Environment, uf string) sefaz.Result
	Query(ctx context.Context, accessKey string, env types.Environment, uf string) sefaz.Result
	Cancel(ctx context.Context, req sefaz.CancelRequest) sefaz.Result
}

type EmitRequest struct {
	CompanyID       uuid.UUID
	Series          int
	OperationNature string
	Recipient       nfe.Party
	Items           []nfe.LineItem
	Total           decimal.Decimal
}

// Outcome is what a lifecycle operation produced. Document reflects the
// persisted state after the operation; Result is present whenever a SOAP
// exchange happened (or was locally short-circuited).
type Outcome struct {
	Document              data.FiscalDocument
	Result                *sefaz.Result
	CertificateNearExpiry bool
}

type Opts struct {
	Log          *logan.Entry
	DocumentsQ   data.FiscalDocumentQ
	LineItemsQ   data.LineItemQ
	CompaniesQ   data.CompanyQ
	CertificateQ data.CertificateQ
	SequenceQ    data.SequenceQ
	Vault        vault.CertificateVault
	Transport    Transport

	// Now and Code are overridable for tests. Defaults: time.Now and a
	// crypto-random cNF.
	Now  func() time.Time
	Code func() (int, error)
}

func NewOrchestrator(opts Opts) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Code == nil {
		opts.Code = fiscal.RandomCode
	}
	return &Orchestrator{
		log:       opts.Log,
		documents: opts.DocumentsQ,
		items:     opts.LineItemsQ,
		companies: opts.CompaniesQ,
		certs:     opts.CertificateQ,
		sequences: opts.SequenceQ,
		vault:     opts.Vault,
		parser:    certificate.NewParser(),
		builder:   nfe.NewBuilder(),
		signer:    nfe.NewSigner(),
		transport: opts.Transport,
		now:       opts.Now,
		code:      opts.Code,
		locks:     newSeriesLocks(),
	}
}

type Orchestrator struct {
	log       *logan.Entry
	documents data.FiscalDocumentQ
	items     data.LineItemQ
	companies data.CompanyQ
	certs     data.CertificateQ
	sequences data.SequenceQ
	vault     vault.CertificateVault
	parser    certificate.Parser
	builder   nfe.Builder
	signer    nfe.Signer
	transport Transport
	now       func() time.Time
	code      func() (int, error)
	locks     *seriesLocks
}

// Emit runs the full emission pipeline for one document. The sequence
// counter only advances after SEFAZ confirms the authorization, and the
// per-(company, series) lock is held for the whole pipeline so concurrent
// emissions never share a number.
func (o *Orchestrator) Emit(ctx context.Context, req EmitRequest) (*Outcome, error) {
	company, err := o.companies.New().FilterByID(req.CompanyID).Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get company")
	}
	if company == nil {
		return nil, errors.From(errors.New("company not found"), logan.F{"company_id": req.CompanyID})
	}

	lock := o.locks.acquire(req.CompanyID, req.Series)
	lock.Lock()
	defer lock.Unlock()

	number, err := o.sequences.New().Next(req.CompanyID, req.Series)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read sequence counter")
	}

	issuedAt := o.now()
	doc, err := o.documents.New().Insert(data.FiscalDocument{
		ID:              uuid.New(),
		CompanyID:       req.CompanyID,
		Number:          number,
		Series:          req.Series,
		Status:          types.StatusProcessing,
		IssuedAt:        issuedAt,
		OperationNature: req.OperationNature,
		Total:           req.Total,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert document")
	}

	for _, item := range req.Items {
		_, err = o.items.New().Insert(data.LineItem{
			ID:          uuid.New(),
			DocumentID:  doc.ID,
			ProductCode: item.ProductCode,
			Description: item.Description,
			NCM:         item.NCM,
			CFOP:        item.CFOP,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to insert line item")
		}
	}

	material, validity, emissionErr := o.keyMaterial(ctx, company.ID)
	if emissionErr != nil {
		return o.fail(doc, nil, emissionErr)
	}

	outcome := &Outcome{CertificateNearExpiry: validity.NearExpiry}

	code, err := o.code()
	if err != nil {
		return o.fail(doc, nil, types.NewEmissionError(types.SigningFailedErr, err))
	}

	accessKey, err := fiscal.BuildAccessKey(fiscal.KeyParts{
		UF:           company.UF,
		IssuedAt:     issuedAt,
		CNPJ:         company.CNPJ,
		Model:        fiscal.ModelNFe,
		Series:       req.Series,
		Number:       number,
		EmissionType: 1,
		Code:         code,
	})
	if err != nil {
		return o.fail(doc, nil, types.NewEmissionError(types.SigningFailedErr, err))
	}

	document := nfe.Document{
		Issuer:    partyFromCompany(*company),
		Recipient: req.Recipient,
		Items:     req.Items,
		Total:     req.Total,
		Meta: nfe.Meta{
			AccessKey:       accessKey,
			Series:          req.Series,
			Number:          number,
			IssuedAt:        issuedAt,
			OperationNature: req.OperationNature,
			Environment:     company.Environment,
			EmissionType:    1,
			Code:            code,
		},
	}

	xml, err := o.builder.Build(document)
	if err != nil {
		emissionErr, ok := asEmissionError(err)
		if !ok {
			emissionErr = types.NewEmissionError(types.InvalidLineItemErr, err)
		}
		return o.fail(doc, nil, emissionErr)
	}

	signed, err := o.signer.Sign(xml, material)
	if err != nil {
		emissionErr, ok := asEmissionError(err)
		if !ok {
			emissionErr = types.NewEmissionError(types.SigningFailedErr, err)
		}
		return o.fail(doc, nil, emissionErr)
	}

	// Persisted before the exchange so an interrupted emission leaves a
	// processing row the reconciler can query by access key.
	doc.AccessKey = &accessKey
	doc.SignedXML = &signed
	doc, err = o.documents.New().Update(*doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store signed document")
	}

	res := o.transport.Authorize(ctx, signed, company.Environment, company.UF)
	outcome.Result = &res

	if !res.OK {
		kind := types.SefazRejectionErr
		if res.Kind != nil {
			kind = *res.Kind
		}
		return o.fail(doc, &res, types.NewEmissionError(kind, errors.New(res.Message)))
	}

	// SEFAZ may echo the key it processed; what it confirmed is what we keep.
	confirmedKey := res.AccessKey
	if confirmedKey == "" {
		confirmedKey = accessKey
	}

	doc.Status = types.StatusAuthorized
	doc.AccessKey = &confirmedKey
	doc.Protocol = strPtr(res.Protocol)
	doc.SignedXML = &signed

	updated, err := o.documents.New().Update(*doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store authorization")
	}
	outcome.Document = *updated

	if _, err = o.sequences.New().Bump(req.CompanyID, req.Series); err != nil {
		// The document is authorized but the counter did not advance. The
		// next emission of this series will collide and be rejected as a
		// duplicate, so this has to surface.
		return outcome, errors.Wrap(err, "failed to bump sequence counter")
	}

	o.log.WithFields(logan.F{
		"document_id": doc.ID,
		"access_key":  confirmedKey,
		"protocol":    res.Protocol,
	}).Info("document authorized")

	return outcome, nil
}

// Cancel registers a tpEvento 110111 cancellation for an authorized
// document. On any failure the document stays authorized.
func (o *Orchestrator) Cancel(ctx context.Context, docID uuid.UUID, justification string) (*Outcome, error) {
	if utf8.RuneCountInString(strings.TrimSpace(justification)) < sefaz.MinJustificationLen {
		return nil, types.NewEmissionError(types.JustificationTooShortErr,
			errors.New("justification must have at least 15 characters"))
	}

	doc, err := o.documents.New().FilterByID(docID).Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get document")
	}
	if doc == nil {
		return nil, errors.From(errors.New("document not found"), logan.F{"document_id": docID})
	}

	if doc.Status != types.StatusAuthorized {
		return nil, types.NewEmissionError(types.InvalidStateTransitionErr,
			errors.From(errors.New("only authorized documents can be cancelled"), logan.F{"status": doc.Status}))
	}
	if doc.AccessKey == nil || doc.Protocol == nil {
		return nil, errors.New("authorized document is missing access key or protocol")
	}

	company, err := o.companies.New().FilterByID(doc.CompanyID).Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get company")
	}
	if company == nil {
		return nil, errors.From(errors.New("company not found"), logan.F{"company_id": doc.CompanyID})
	}

	material, validity, emissionErr := o.keyMaterial(ctx, company.ID)
	if emissionErr != nil {
		return nil, emissionErr
	}

	res := o.transport.Cancel(ctx, sefaz.CancelRequest{
		AccessKey:      *doc.AccessKey,
		Protocol:       *doc.Protocol,
		Justification:  justification,
		SequenceNumber: 1,
		CNPJ:           company.CNPJ,
		Environment:    company.Environment,
		UF:             company.UF,
		IssuedAt:       o.now(),
		Material:       material,
	})

	outcome := &Outcome{
		Document:              *doc,
		Result:                &res,
		CertificateNearExpiry: validity.NearExpiry,
	}

	if !res.OK {
		kind := types.SefazRejectionErr
		if res.Kind != nil {
			kind = *res.Kind
		}
		return outcome, types.NewEmissionError(kind, errors.New(res.Message))
	}

	doc.Status = types.StatusCancelled
	doc.CancelJustification = &justification
	doc.CancelProtocol = strPtr(res.Protocol)

	updated, err := o.documents.New().Update(*doc)
	if err != nil {
		return outcome, errors.Wrap(err, "failed to store cancellation")
	}
	outcome.Document = *updated

	o.log.WithFields(logan.F{
		"document_id": doc.ID,
		"protocol":    res.Protocol,
	}).Info("document cancelled")

	return outcome, nil
}

// keyMaterial resolves the company's active certificate, pulls the bundle
// from the vault and parses it. The material lives only in the caller's
// scope; nothing is cached.
func (o *Orchestrator) keyMaterial(ctx context.Context, companyID uuid.UUID) (*certificate.KeyMaterial, certificate.Validity, *types.EmissionError) {
	var validity certificate.Validity

	record, err := o.certs.New().FilterByCompany(companyID).FilterActive().Get()
	if err != nil {
		return nil, validity, types.NewEmissionError(types.CertificateNotFoundErr, err)
	}
	if record == nil {
		return nil, validity, types.NewEmissionError(types.CertificateNotFoundErr,
			errors.New("no active certificate for company"))
	}

	secret, err := o.vault.Retrieve(ctx, record.VaultHandle)
	if err != nil {
		return nil, validity, types.NewEmissionError(types.CertificateNotFoundErr, err)
	}

	material, err := o.parser.Parse(secret.Bundle, secret.Password)
	if err != nil {
		emissionErr, ok := asEmissionError(err)
		if !ok {
			emissionErr = types.NewEmissionError(types.CertificateParseErr, err)
		}
		return nil, validity, emissionErr
	}

	validity = certificate.Validate(material.Certificate, o.now())
	if !validity.Valid {
		return nil, validity, types.NewEmissionError(types.CertificateExpiredErr,
			errors.New(validity.Reason))
	}
	if validity.NearExpiry {
		o.log.WithFields(logan.F{
			"company_id": companyID,
			"not_after":  material.Certificate.NotAfter,
		}).Warn("active certificate expires soon")
	}

	return material, validity, nil
}

// fail moves the document to error with the rejection details. The sequence
// counter is never touched on this path.
func (o *Orchestrator) fail(doc *data.FiscalDocument, res *sefaz.Result, emissionErr *types.EmissionError) (*Outcome, error) {
	doc.Status = types.StatusError
	if res != nil {
		doc.RejectionCode = strPtr(res.Code)
	}
	msg := emissionErr.Error()
	doc.RejectionMessage = &msg

	updated, err := o.documents.New().Update(*doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store rejection")
	}

	o.log.WithError(emissionErr).WithFields(logan.F{
		"document_id": doc.ID,
		"kind":        emissionErr.Kind.String(),
	}).Warn("emission failed")

	return &Outcome{Document: *updated, Result: res}, emissionErr
}

func partyFromCompany(c data.Company) nfe.Party {
	return nfe.Party{
		CNPJ:      c.CNPJ,
		LegalName: c.LegalName,
		IE:        c.IE,
		Street:    c.Street,
		City:      c.City,
		CityCode:  c.CityCode,
		UF:        c.UF,
		ZipCode:   c.ZipCode,
	}
}

func asEmissionError(err error) (*types.EmissionError, bool) {
	var emissionErr *types.EmissionError
	if stderrors.As(err, &emissionErr) {
		return emissionErr, true
	}
	return nil, false
}

func strPtr(s string) *string {
	return &s
}
