package sefaz

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"gitlab.com/distributed_lab/logan/v3"

	"github.com/brfiscal/nfe-issuer-svc/internal/certificate"
	"github.com/brfiscal/nfe-issuer-svc/internal/fiscal"
	"github.com/brfiscal/nfe-issuer-svc/internal/nfe"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

// DefaultTimeout bounds a single SOAP exchange.
const DefaultTimeout = 30 * time.Second

// MinJustificationLen is the SEFAZ-mandated minimum for a cancellation
// justification, counted in runes.
const MinJustificationLen = 15

const (
	eventCancel      = "110111"
	eventDescCancel  = "Cancelamento"
	eventVersion     = "1.00"
	envelopeEnviNFe  = `<soap12:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap12="http://www.w3.org/2003/05/soap-envelope"><soap12:Body><nfeDadosMsg xmlns="%s"><enviNFe xmlns="%s" versao="4.00"><idLote>%s</idLote><indSinc>1</indSinc>%s</enviNFe></nfeDadosMsg></soap12:Body></soap12:Envelope>`
	envelopeConsSit  = `<soap12:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap12="http://www.w3.org/2003/05/soap-envelope"><soap12:Body><nfeDadosMsg xmlns="%s"><consSitNFe xmlns="%s" versao="4.00"><tpAmb>%s</tpAmb><xServ>CONSULTAR</xServ><chNFe>%s</chNFe></consSitNFe></nfeDadosMsg></soap12:Body></soap12:Envelope>`
)

// Client performs the SOAP exchanges against SEFAZ. All failures come back
// inside the Result; the only thing a caller has to check is Result.OK and
// Result.Code.
type Client struct {
	http      *http.Client
	endpoints Endpoints
	log       *logan.Entry
}

func NewClient(endpoints Endpoints, timeout time.Duration, log *logan.Entry) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		endpoints: endpoints,
		log:       log,
	}
}

// Authorize submits a signed NFe inside a synchronous enviNFe lot. OK iff
// the document protocol carries cStat 100.
func (c *Client) Authorize(ctx context.Context, signedXML string, env types.Environment, uf string) Result {
	urls, ok := c.endpoints.Resolve(env, uf)
	if !ok {
		return localFailure(types.EndpointNotConfiguredErr,
			fmt.Sprintf("no authorization endpoint for %s/%s", env, uf))
	}

	body := stripXMLHeader(signedXML)
	envelope := fmt.Sprintf(envelopeEnviNFe, wsdlAuthorize, nfe.NamespaceNFe, newLotID(), body)

	raw, elapsed, err := c.exchange(ctx, urls.Authorization, ActionAuthorize, envelope)
	if err != nil {
		return transportFailure(err, raw, elapsed)
	}

	var ret retEnviNFe
	if err := decodeFirst(raw, "retEnviNFe", &ret); err != nil {
		return transportFailure(errors.Wrap(err, "malformed authorization response"), raw, elapsed)
	}

	res := Result{
		Code:    ret.CStat,
		Message: ret.XMotivo,
		Raw:     raw,
		Elapsed: elapsed,
	}

	if prot := ret.ProtNFe.InfProt; prot.CStat != "" {
		res.Code = prot.CStat
		res.Message = prot.XMotivo
		res.Protocol = prot.NProt
		res.AccessKey = prot.ChNFe
	}

	res.OK = res.Code == CodeAuthorized
	return res
}

// Query checks the current status of a document by access key.
func (c *Client) Query(ctx context.Context, accessKey string, env types.Environment, uf string) Result {
	urls, ok := c.endpoints.Resolve(env, uf)
	if !ok {
		return localFailure(types.EndpointNotConfiguredErr,
			fmt.Sprintf("no query endpoint for %s/%s", env, uf))
	}

	envelope := fmt.Sprintf(envelopeConsSit, wsdlQuery, nfe.NamespaceNFe, env.TpAmb(), accessKey)

	raw, elapsed, err := c.exchange(ctx, urls.Query, ActionQuery, envelope)
	if err != nil {
		return transportFailure(err, raw, elapsed)
	}

	var ret retConsSitNFe
	if err := decodeFirst(raw, "retConsSitNFe", &ret); err != nil {
		return transportFailure(errors.Wrap(err, "malformed query response"), raw, elapsed)
	}

	res := Result{
		Code:      ret.CStat,
		Message:   ret.XMotivo,
		Protocol:  ret.ProtNFe.InfProt.NProt,
		AccessKey: accessKey,
		Raw:       raw,
		Elapsed:   elapsed,
	}
	res.OK = res.Code == CodeAuthorized
	return res
}

// CancelRequest is the input of a cancellation event submission.
type CancelRequest struct {
	AccessKey      string
	Protocol       string // authorization protocol being cancelled
	Justification  string
	SequenceNumber int
	CNPJ           string
	Environment    types.Environment
	UF             string
	IssuedAt       time.Time
	Material       *certificate.KeyMaterial
}

// Cancel submits a tpEvento 110111 event. Justifications under
// MinJustificationLen are rejected locally without touching the network.
// OK iff the event protocol carries cStat 135.
func (c *Client) Cancel(ctx context.Context, req CancelRequest) Result {
	if utf8.RuneCountInString(strings.TrimSpace(req.Justification)) < MinJustificationLen {
		return localFailure(types.JustificationTooShortErr,
			fmt.Sprintf("justification must have at least %d characters", MinJustificationLen))
	}

	urls, ok := c.endpoints.Resolve(req.Environment, req.UF)
	if !ok {
		return localFailure(types.EndpointNotConfiguredErr,
			fmt.Sprintf("no event endpoint for %s/%s", req.Environment, req.UF))
	}

	envelope, err := buildCancelEnvelope(req)
	if err != nil {
		return localFailure(types.SigningFailedErr, err.Error())
	}

	raw, elapsed, err := c.exchange(ctx, urls.Event, ActionEvent, envelope)
	if err != nil {
		return transportFailure(err, raw, elapsed)
	}

	var ret retEnvEvento
	if err := decodeFirst(raw, "retEnvEvento", &ret); err != nil {
		return transportFailure(errors.Wrap(err, "malformed event response"), raw, elapsed)
	}

	res := Result{
		Code:      ret.CStat,
		Message:   ret.XMotivo,
		AccessKey: req.AccessKey,
		Raw:       raw,
		Elapsed:   elapsed,
	}

	if inf := ret.RetEvento.InfEvento; inf.CStat != "" {
		res.Code = inf.CStat
		res.Message = inf.XMotivo
		res.Protocol = inf.NProt
	}

	res.OK = res.Code == CodeCancelHomolog
	return res
}

func (c *Client) exchange(ctx context.Context, url, action, envelope string) ([]byte, time.Duration, error) {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(envelope))
	if err != nil {
		return nil, time.Since(started), errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", `application/soap+xml; charset=utf-8; action="`+action+`"`)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, time.Since(started), errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(started)
	if err != nil {
		return nil, elapsed, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return raw, elapsed, errors.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	c.log.WithFields(logan.F{
		"url":     url,
		"elapsed": elapsed.String(),
	}).Debug("SEFAZ exchange finished")

	return raw, elapsed, nil
}

// buildCancelEnvelope assembles envEvento with a signed infEvento and wraps
// it in SOAP 1.2.
func buildCancelEnvelope(req CancelRequest) (string, error) {
	doc := etree.NewDocument()
	envEvento := doc.CreateElement("envEvento")
	envEvento.CreateAttr("versao", eventVersion)
	envEvento.CreateAttr("xmlns", nfe.NamespaceNFe)
	envEvento.CreateElement("idLote").SetText(newLotID())

	evento := envEvento.CreateElement("evento")
	evento.CreateAttr("versao", eventVersion)
	evento.CreateAttr("xmlns", nfe.NamespaceNFe)

	ufCode, ok := fiscal.UFCode(req.UF)
	if !ok {
		return "", errors.Errorf("unknown UF %q", req.UF)
	}

	id := fmt.Sprintf("ID%s%s%02d", eventCancel, req.AccessKey, req.SequenceNumber)

	inf := evento.CreateElement("infEvento")
	inf.CreateAttr("Id", id)
	inf.CreateElement("cOrgao").SetText(ufCode)
	inf.CreateElement("tpAmb").SetText(req.Environment.TpAmb())
	inf.CreateElement("CNPJ").SetText(fiscal.OnlyDigits(req.CNPJ))
	inf.CreateElement("chNFe").SetText(req.AccessKey)
	inf.CreateElement("dhEvento").SetText(req.IssuedAt.Format("2006-01-02T15:04:05-07:00"))
	inf.CreateElement("tpEvento").SetText(eventCancel)
	inf.CreateElement("nSeqEvento").SetText(strconv.Itoa(req.SequenceNumber))
	inf.CreateElement("verEvento").SetText(eventVersion)

	det := inf.CreateElement("detEvento")
	det.CreateAttr("versao", eventVersion)
	det.CreateElement("descEvento").SetText(eventDescCancel)
	det.CreateElement("nProt").SetText(req.Protocol)
	det.CreateElement("xJust").SetText(req.Justification)

	sig, err := nfe.BuildSignature(inf, id, req.Material)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign infEvento")
	}
	evento.AddChild(sig)

	soapDoc := etree.NewDocument()
	env := soapDoc.CreateElement("soap12:Envelope")
	env.CreateAttr("xmlns:soap12", "http://www.w3.org/2003/05/soap-envelope")
	env.CreateAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	env.CreateAttr("xmlns:xsd", "http://www.w3.org/2001/XMLSchema")

	body := env.CreateElement("soap12:Body")
	dadosMsg := body.CreateElement("nfeDadosMsg")
	dadosMsg.CreateAttr("xmlns", wsdlEvent)
	dadosMsg.AddChild(doc.Root())
	soapDoc.SetRoot(env)

	out, err := soapDoc.WriteToString()
	if err != nil {
		return "", errors.Wrap(err, "failed to serialize event envelope")
	}
	return out, nil
}

func stripXMLHeader(xmlStr string) string {
	trimmed := strings.TrimSpace(xmlStr)
	if strings.HasPrefix(trimmed, "<?xml") {
		if idx := strings.Index(trimmed, "?>"); idx >= 0 {
			trimmed = strings.TrimSpace(trimmed[idx+2:])
		}
	}
	return trimmed
}

func newLotID() string {
	return strconv.FormatInt(time.Now().UnixNano()%1_000_000_000_000_000, 10)
}

type infProt struct {
	ChNFe   string `xml:"chNFe"`
	NProt   string `xml:"nProt"`
	CStat   string `xml:"cStat"`
	XMotivo string `xml:"xMotivo"`
}

type retEnviNFe struct {
	CStat   string `xml:"cStat"`
	XMotivo string `xml:"xMotivo"`
	ProtNFe struct {
		InfProt infProt `xml:"infProt"`
	} `xml:"protNFe"`
}

type retConsSitNFe struct {
	CStat   string `xml:"cStat"`
	XMotivo string `xml:"xMotivo"`
	ProtNFe struct {
		InfProt infProt `xml:"infProt"`
	} `xml:"protNFe"`
}

type retEnvEvento struct {
	CStat     string `xml:"cStat"`
	XMotivo   string `xml:"xMotivo"`
	RetEvento struct {
		InfEvento struct {
			CStat   string `xml:"cStat"`
			XMotivo string `xml:"xMotivo"`
			NProt   string `xml:"nProt"`
		} `xml:"infEvento"`
	} `xml:"retEvento"`
}

// decodeFirst scans the SOAP body for the first element with the given local
// name and decodes it, regardless of envelope namespaces.
func decodeFirst(body []byte, local string, out interface{}) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return errors.Errorf("%s not found in response", local)
			}
			return err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if start.Name.Local == local {
			return dec.DecodeElement(out, &start)
		}
	}
}
