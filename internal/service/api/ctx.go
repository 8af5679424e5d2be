package api

import (
	"context"
	"net/http"

	"gitlab.com/distributed_lab/logan/v3"

	"github.com/brfiscal/nfe-issuer-svc/internal/data"
	"github.com/brfiscal/nfe-issuer-svc/internal/issuer"
	"github.com/brfiscal/nfe-issuer-svc/internal/vault"
)

type ctxKey int

const (
	logCtxKey ctxKey = iota
	orchestratorKey
	documentQKey
	lineItemQKey
	companyQKey
	certificateQKey
	vaultKey
)

func CtxLog(entry *logan.Entry) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, logCtxKey, entry)
	}
}

func Log(r *http.Request) *logan.Entry {
	return r.Context().Value(logCtxKey).(*logan.Entry)
}

func CtxOrchestrator(entry *issuer.Orchestrator) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, orchestratorKey, entry)
	}
}

func Orchestrator(r *http.Request) *issuer.Orchestrator {
	return r.Context().Value(orchestratorKey).(*issuer.Orchestrator)
}

func CtxFiscalDocumentQ(entry data.FiscalDocumentQ) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, documentQKey, entry)
	}
}

func FiscalDocumentQ(r *http.Request) data.FiscalDocumentQ {
	return r.Context().Value(documentQKey).(data.FiscalDocumentQ).New()
}

func CtxLineItemQ(entry data.LineItemQ) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, lineItemQKey, entry)
	}
}

func LineItemQ(r *http.Request) data.LineItemQ {
	return r.Context().Value(lineItemQKey).(data.LineItemQ).New()
}

func CtxCompanyQ(entry data.CompanyQ) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, companyQKey, entry)
	}
}

func CompanyQ(r *http.Request) data.CompanyQ {
	return r.Context().Value(companyQKey).(data.CompanyQ).New()
}

func CtxCertificateQ(entry data.CertificateQ) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, certificateQKey, entry)
	}
}

func CertificateQ(r *http.Request) data.CertificateQ {
	return r.Context().Value(certificateQKey).(data.CertificateQ).New()
}

func CtxCertificateVault(entry vault.CertificateVault) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, vaultKey, entry)
	}
}

func CertificateVault(r *http.Request) vault.CertificateVault {
	return r.Context().Value(vaultKey).(vault.CertificateVault)
}
