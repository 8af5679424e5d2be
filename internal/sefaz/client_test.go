package sefaz

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/logan/v3"

	"github.com/brfiscal/nfe-issuer-svc/internal/certificate"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

func cancelKeyMaterial(t *testing.T) *certificate.KeyMaterial {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "EMPRESA DEMO LTDA:11222333000181"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &certificate.KeyMaterial{Certificate: cert, Key: key}
}

const testAccessKey = "35240123456789000123550010000000123456789012"

func testLog() *logan.Entry {
	return logan.New().Level(logan.FatalLevel)
}

func endpointsFor(url string) Endpoints {
	return Endpoints{
		types.EnvHomologacao: {
			"SP": ServiceURLs{Authorization: url, Query: url, Event: url},
		},
	}
}

const authorizedResponse = `<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope"><soap12:Body><nfeResultMsg xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4"><retEnviNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00"><tpAmb>2</tpAmb><cStat>104</cStat><xMotivo>Lote processado</xMotivo><protNFe versao="4.00"><infProt><tpAmb>2</tpAmb><chNFe>` + testAccessKey + `</chNFe><dhRecbto>2024-01-15T10:30:05-03:00</dhRecbto><nProt>135240000000123</nProt><cStat>100</cStat><xMotivo>Autorizado o uso da NF-e</xMotivo></infProt></protNFe></retEnviNFe></nfeResultMsg></soap12:Body></soap12:Envelope>`

const rejectedResponse = `<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope"><soap12:Body><nfeResultMsg xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4"><retEnviNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00"><tpAmb>2</tpAmb><cStat>104</cStat><xMotivo>Lote processado</xMotivo><protNFe versao="4.00"><infProt><chNFe>` + testAccessKey + `</chNFe><cStat>539</cStat><xMotivo>Rejeicao: Duplicidade de NF-e</xMotivo></infProt></protNFe></retEnviNFe></nfeResultMsg></soap12:Body></soap12:Envelope>`

const cancelHomologResponse = `<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope"><soap12:Body><nfeResultMsg xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeRecepcaoEvento4"><retEnvEvento xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.00"><idLote>1</idLote><tpAmb>2</tpAmb><cOrgao>35</cOrgao><cStat>128</cStat><xMotivo>Lote de Evento Processado</xMotivo><retEvento versao="1.00"><infEvento><tpAmb>2</tpAmb><cOrgao>35</cOrgao><cStat>135</cStat><xMotivo>Evento registrado e vinculado a NF-e</xMotivo><chNFe>` + testAccessKey + `</chNFe><tpEvento>110111</tpEvento><nSeqEvento>1</nSeqEvento><nProt>135240000000999</nProt></infEvento></retEvento></retEnvEvento></nfeResultMsg></soap12:Body></soap12:Envelope>`

const queryAuthorizedResponse = `<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope"><soap12:Body><nfeResultMsg xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeConsultaProtocolo4"><retConsSitNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00"><tpAmb>2</tpAmb><cStat>100</cStat><xMotivo>Autorizado o uso da NF-e</xMotivo><protNFe versao="4.00"><infProt><chNFe>` + testAccessKey + `</chNFe><nProt>135240000000123</nProt><cStat>100</cStat><xMotivo>Autorizado o uso da NF-e</xMotivo></infProt></protNFe></retConsSitNFe></nfeResultMsg></soap12:Body></soap12:Envelope>`

func TestAuthorizeSuccess(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(authorizedResponse))
	}))
	defer srv.Close()

	client := NewClient(endpointsFor(srv.URL), DefaultTimeout, testLog())
	res := client.Authorize(context.Background(), "<NFe><infNFe Id=\"NFe"+testAccessKey+"\"></infNFe></NFe>", types.EnvHomologacao, "SP")

	assert.True(t, res.OK)
	assert.Equal(t, CodeAuthorized, res.Code)
	assert.Equal(t, "135240000000123", res.Protocol)
	assert.Equal(t, testAccessKey, res.AccessKey)
	assert.Contains(t, gotBody, "<enviNFe")
	assert.Contains(t, gotBody, "<indSinc>1</indSinc>")
	assert.Contains(t, gotBody, "<idLote>")
}

func TestAuthorizeRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rejectedResponse))
	}))
	defer srv.Close()

	client := NewClient(endpointsFor(srv.URL), DefaultTimeout, testLog())
	res := client.Authorize(context.Background(), "<NFe></NFe>", types.EnvHomologacao, "SP")

	assert.False(t, res.OK)
	assert.Equal(t, "539", res.Code)
	assert.Contains(t, res.Message, "Duplicidade")
	assert.Nil(t, res.Kind, "a SEFAZ rejection is a business outcome, not a local failure")
}

func TestAuthorizeEndpointNotConfigured(t *testing.T) {
	client := NewClient(Endpoints{}, DefaultTimeout, testLog())
	res := client.Authorize(context.Background(), "<NFe></NFe>", types.EnvProducao, "MG")

	assert.False(t, res.OK)
	require.NotNil(t, res.Kind)
	assert.Equal(t, types.EndpointNotConfiguredErr, *res.Kind)
}

func TestAuthorizeConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(endpointsFor(srv.URL), DefaultTimeout, testLog())
	res := client.Authorize(context.Background(), "<NFe></NFe>", types.EnvHomologacao, "SP")

	assert.False(t, res.OK)
	assert.Equal(t, CodeLocalTransport, res.Code)
	require.NotNil(t, res.Kind)
	assert.Equal(t, types.TransportFailureErr, *res.Kind)
	assert.NotEmpty(t, res.Message)
}

func TestAuthorizeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(authorizedResponse))
	}))
	defer srv.Close()

	client := NewClient(endpointsFor(srv.URL), 20*time.Millisecond, testLog())
	res := client.Authorize(context.Background(), "<NFe></NFe>", types.EnvHomologacao, "SP")

	assert.False(t, res.OK)
	assert.Equal(t, CodeLocalTransport, res.Code)
}

func TestAuthorizeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not xml at all"))
	}))
	defer srv.Close()

	client := NewClient(endpointsFor(srv.URL), DefaultTimeout, testLog())
	res := client.Authorize(context.Background(), "<NFe></NFe>", types.EnvHomologacao, "SP")

	assert.False(t, res.OK)
	assert.Equal(t, CodeLocalTransport, res.Code)
}

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(queryAuthorizedResponse))
	}))
	defer srv.Close()

	client := NewClient(endpointsFor(srv.URL), DefaultTimeout, testLog())
	res := client.Query(context.Background(), testAccessKey, types.EnvHomologacao, "SP")

	assert.True(t, res.OK)
	assert.Equal(t, CodeAuthorized, res.Code)
	assert.Equal(t, "135240000000123", res.Protocol)
}

func TestCancelShortJustificationSkipsNetwork(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(cancelHomologResponse))
	}))
	defer srv.Close()

	client := NewClient(endpointsFor(srv.URL), DefaultTimeout, testLog())
	res := client.Cancel(context.Background(), CancelRequest{
		AccessKey:     testAccessKey,
		Justification: strings.Repeat("x", 14),
		Environment:   types.EnvHomologacao,
		UF:            "SP",
	})

	assert.False(t, res.OK)
	require.NotNil(t, res.Kind)
	assert.Equal(t, types.JustificationTooShortErr, *res.Kind)
	assert.Zero(t, hits, "no network call for a locally rejected justification")
}

func TestCancelSuccess(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = buf
		w.Write([]byte(cancelHomologResponse))
	}))
	defer srv.Close()

	client := NewClient(endpointsFor(srv.URL), DefaultTimeout, testLog())
	res := client.Cancel(context.Background(), CancelRequest{
		AccessKey:      testAccessKey,
		Protocol:       "135240000000123",
		Justification:  strings.Repeat("x", 15),
		SequenceNumber: 1,
		CNPJ:           "11222333000181",
		Environment:    types.EnvHomologacao,
		UF:             "SP",
		IssuedAt:       time.Now(),
		Material:       cancelKeyMaterial(t),
	})

	assert.True(t, res.OK)
	assert.Equal(t, CodeCancelHomolog, res.Code)
	assert.Equal(t, "135240000000999", res.Protocol)

	body := string(gotBody)
	assert.Contains(t, body, "<envEvento")
	assert.Contains(t, body, "<tpEvento>110111</tpEvento>")
	assert.Contains(t, body, "ID110111"+testAccessKey+"01")
	assert.Contains(t, body, "<Signature")
}

func TestCancelRejection(t *testing.T) {
	rejection := strings.Replace(cancelHomologResponse, "<cStat>135</cStat>", "<cStat>573</cStat>", 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rejection))
	}))
	defer srv.Close()

	client := NewClient(endpointsFor(srv.URL), DefaultTimeout, testLog())
	res := client.Cancel(context.Background(), CancelRequest{
		AccessKey:      testAccessKey,
		Protocol:       "135240000000123",
		Justification:  strings.Repeat("x", 20),
		SequenceNumber: 1,
		CNPJ:           "11222333000181",
		Environment:    types.EnvHomologacao,
		UF:             "SP",
		IssuedAt:       time.Now(),
		Material:       cancelKeyMaterial(t),
	})

	assert.False(t, res.OK)
	assert.Equal(t, "573", res.Code)
	assert.Nil(t, res.Kind)
}

func TestEndpointsResolve(t *testing.T) {
	eps := Endpoints{
		types.EnvHomologacao: {
			"SP": ServiceURLs{Authorization: "a", Query: "q", Event: "e"},
		},
	}

	urls, ok := eps.Resolve(types.EnvHomologacao, "SP")
	require.True(t, ok)
	assert.Equal(t, "a", urls.Authorization)

	_, ok = eps.Resolve(types.EnvHomologacao, "MG")
	assert.False(t, ok)

	_, ok = eps.Resolve(types.EnvProducao, "SP")
	assert.False(t, ok)
}
