package reconciler

import (
	"context"
	"time"

	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
	"gitlab.com/distributed_lab/running"

	"github.com/brfiscal/nfe-issuer-svc/internal/data"
	"github.com/brfiscal/nfe-issuer-svc/internal/issuer"
	"github.com/brfiscal/nfe-issuer-svc/internal/sefaz"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

const (
	DefaultInterval   = time.Minute
	DefaultStaleAfter = 5 * time.Minute
)

// transient SEFAZ codes: the lot may still be in flight, keep the document
// in processing and retry on the next tick.
var transientCodes = map[string]bool{
	"105":                    true, // lote em processamento
	"108":                    true, // servico paralisado momentaneamente
	"109":                    true, // servico paralisado sem previsao
	sefaz.CodeLocalTransport: true,
}

type Opts struct {
	Log        *logan.Entry
	DocumentsQ data.FiscalDocumentQ
	CompaniesQ data.CompanyQ
	Transport  issuer.Transport
	Interval   time.Duration
	StaleAfter time.Duration
	Now        func() time.Time
}

// Reconciler resolves documents stuck in processing after a crash between
// the SOAP request and the local status update. It asks SEFAZ what actually
// happened and folds the answer back into the document.
type Reconciler struct {
	log        *logan.Entry
	documents  data.FiscalDocumentQ
	companies  data.CompanyQ
	transport  issuer.Transport
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func New(opts Opts) *Reconciler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reconciler{
		log:        opts.Log,
		documents:  opts.DocumentsQ,
		companies:  opts.CompaniesQ,
		transport:  opts.Transport,
		interval:   opts.Interval,
		staleAfter: opts.StaleAfter,
		now:        opts.Now,
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	running.WithBackOff(ctx, r.log, "document-reconciler", r.Tick,
		r.interval, r.interval, 10*r.interval)
}

func (r *Reconciler) Tick(ctx context.Context) error {
	cutoff := r.now().Add(-r.staleAfter)
	stuck, err := r.documents.New().
		FilterByStatus(types.StatusProcessing).
		FilterUpdatedBefore(cutoff).
		Select()
	if err != nil {
		return errors.Wrap(err, "failed to select stuck documents")
	}

	for _, doc := range stuck {
		if err = r.reconcile(ctx, doc); err != nil {
			r.log.WithError(err).WithFields(logan.F{"document_id": doc.ID}).
				Error("failed to reconcile document")
		}
	}

	return nil
}

func (r *Reconciler) reconcile(ctx context.Context, doc data.FiscalDocument) error {
	if doc.AccessKey == nil {
		// never reached the signing stage, the emission can only be retried
		msg := "emission interrupted before submission"
		doc.Status = types.StatusError
		doc.RejectionMessage = &msg
		_, err := r.documents.New().Update(doc)
		return err
	}

	company, err := r.companies.New().FilterByID(doc.CompanyID).Get()
	if err != nil {
		return errors.Wrap(err, "failed to get company")
	}
	if company == nil {
		return errors.New("company not found")
	}

	res := r.transport.Query(ctx, *doc.AccessKey, company.Environment, company.UF)

	switch {
	case res.Code == sefaz.CodeAuthorized:
		doc.Status = types.StatusAuthorized
		doc.Protocol = &res.Protocol
		r.log.WithFields(logan.F{"document_id": doc.ID, "protocol": res.Protocol}).
			Info("stuck document was authorized")
	case transientCodes[res.Code] || res.Code == "":
		// still unknown, leave it for the next tick
		return nil
	default:
		doc.Status = types.StatusError
		doc.RejectionCode = &res.Code
		doc.RejectionMessage = &res.Message
		r.log.WithFields(logan.F{"document_id": doc.ID, "code": res.Code}).
			Info("stuck document was rejected")
	}

	_, err = r.documents.New().Update(doc)
	return err
}
