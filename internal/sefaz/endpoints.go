package sefaz

import (
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

// ServiceURLs groups the three web service endpoints of one (environment,
// UF) authority.
type ServiceURLs struct {
	Authorization string `fig:"authorization,required"`
	Query         string `fig:"query,required"`
	Event         string `fig:"event,required"`
}

// Endpoints is the immutable routing table keyed by environment and UF. It
// is injected into the client from configuration so tests can point it at
// fake servers.
type Endpoints map[types.Environment]map[string]ServiceURLs

// Resolve returns the URLs for an (environment, UF) pair.
func (e Endpoints) Resolve(env types.Environment, uf string) (ServiceURLs, bool) {
	byUF, ok := e[env]
	if !ok {
		return ServiceURLs{}, false
	}
	urls, ok := byUF[uf]
	return urls, ok
}

// SOAPAction headers per NFe 4.00 service.
const (
	ActionAuthorize = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4/nfeAutorizacaoLote"
	ActionQuery     = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeConsultaProtocolo4/nfeConsultaNF"
	ActionEvent     = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeRecepcaoEvento4/nfeRecepcaoEventoNF"
)

// WSDL namespaces of the nfeDadosMsg wrapper per service.
const (
	wsdlAuthorize = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4"
	wsdlQuery     = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeConsultaProtocolo4"
	wsdlEvent     = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeRecepcaoEvento4"
)
