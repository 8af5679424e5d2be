package service

import (
	"context"
	"net"
	"net/http"

	"gitlab.com/distributed_lab/kit/copus/types"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/brfiscal/nfe-issuer-svc/internal/config"
	"github.com/brfiscal/nfe-issuer-svc/internal/data"
	pg "github.com/brfiscal/nfe-issuer-svc/internal/data/postgres"
	"github.com/brfiscal/nfe-issuer-svc/internal/issuer"
	"github.com/brfiscal/nfe-issuer-svc/internal/reconciler"
	"github.com/brfiscal/nfe-issuer-svc/internal/sefaz"
	"github.com/brfiscal/nfe-issuer-svc/internal/vault"
)

type service struct {
	log      *logan.Entry
	copus    types.Copus
	listener net.Listener

	documentsQ    data.FiscalDocumentQ
	lineItemsQ    data.LineItemQ
	companiesQ    data.CompanyQ
	certificatesQ data.CertificateQ
	vault         vault.CertificateVault
	orchestrator  *issuer.Orchestrator
	reconciler    *reconciler.Reconciler
}

func (s *service) run() error {
	s.log.Info("Service started")
	r := s.router()

	if s.reconciler != nil {
		go s.reconciler.Run(context.Background())
	}

	if err := s.copus.RegisterChi(r); err != nil {
		return errors.Wrap(err, "cop failed")
	}

	return http.Serve(s.listener, r)
}

func newService(cfg config.Config) *service {
	log := cfg.Log()
	db := cfg.DB()

	documentsQ := pg.NewFiscalDocumentQ(db)
	lineItemsQ := pg.NewLineItemQ(db)
	companiesQ := pg.NewCompanyQ(db)
	certificatesQ := pg.NewCertificateQ(db)
	sequenceQ := pg.NewSequenceQ(db)
	certVault := cfg.CertificateVault()

	sefazCfg := cfg.SefazConfig()
	transport := sefaz.NewClient(sefazCfg.Endpoints, sefazCfg.Timeout, log)

	orchestrator := issuer.NewOrchestrator(issuer.Opts{
		Log:          log,
		DocumentsQ:   documentsQ,
		LineItemsQ:   lineItemsQ,
		CompaniesQ:   companiesQ,
		CertificateQ: certificatesQ,
		SequenceQ:    sequenceQ,
		Vault:        certVault,
		Transport:    transport,
	})

	var worker *reconciler.Reconciler
	if reconcilerCfg := cfg.ReconcilerConfig(); !reconcilerCfg.Disabled {
		worker = reconciler.New(reconciler.Opts{
			Log:        log,
			DocumentsQ: documentsQ,
			CompaniesQ: companiesQ,
			Transport:  transport,
			Interval:   reconcilerCfg.Interval,
			StaleAfter: reconcilerCfg.StaleAfter,
		})
	}

	return &service{
		log:           log,
		copus:         cfg.Copus(),
		listener:      cfg.Listener(),
		documentsQ:    documentsQ,
		lineItemsQ:    lineItemsQ,
		companiesQ:    companiesQ,
		certificatesQ: certificatesQ,
		vault:         certVault,
		orchestrator:  orchestrator,
		reconciler:    worker,
	}
}

func Run(cfg config.Config) {
	if err := newService(cfg).run(); err != nil {
		panic(err)
	}
}
