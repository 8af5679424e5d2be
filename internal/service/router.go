package service

import (
	"github.com/go-chi/chi"
	"gitlab.com/distributed_lab/ape"

	"github.com/brfiscal/nfe-issuer-svc/internal/service/api"
	"github.com/brfiscal/nfe-issuer-svc/internal/service/api/handlers"
)

func (s *service) router() chi.Router {
	r := chi.NewRouter()

	r.Use(
		ape.RecoverMiddleware(s.log),
		ape.LoganMiddleware(s.log),
		ape.CtxMiddleware(
			api.CtxLog(s.log),
			api.CtxOrchestrator(s.orchestrator),
			api.CtxFiscalDocumentQ(s.documentsQ),
			api.CtxLineItemQ(s.lineItemsQ),
			api.CtxCompanyQ(s.companiesQ),
			api.CtxCertificateQ(s.certificatesQ),
			api.CtxCertificateVault(s.vault),
		),
	)
	r.Route("/integrations/nfe-issuer", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/documents", func(r chi.Router) {
				r.Post("/", handlers.EmitDocument)
				r.Get("/{id}", handlers.GetDocument)
				r.Post("/{id}/cancel", handlers.CancelDocument)
			})
			r.Post("/certificates", handlers.UploadCertificate)
			r.Get("/companies/{company_id}/certificate", handlers.GetCertificate)
		})
	})

	return r
}
