package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/logan/v3"

	"github.com/brfiscal/nfe-issuer-svc/internal/data"
	"github.com/brfiscal/nfe-issuer-svc/internal/sefaz"
	"github.com/brfiscal/nfe-issuer-svc/internal/types"
)

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

type docsQ struct {
	docs     map[uuid.UUID]data.FiscalDocument
	byStatus *types.DocumentStatus
	before   *time.Time
}

func (q *docsQ) New() data.FiscalDocumentQ {
	return &docsQ{docs: q.docs}
}

func (q *docsQ) ResetFilters() data.FiscalDocumentQ {
	q.byStatus, q.before = nil, nil
	return q
}

func (q *docsQ) Get() (*data.FiscalDocument, error) {
	docs, err := q.Select()
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return &docs[0], nil
}

func (q *docsQ) Select() ([]data.FiscalDocument, error) {
	var result []data.FiscalDocument
	for _, doc := range q.docs {
		if q.byStatus != nil && doc.Status != *q.byStatus {
			continue
		}
		if q.before != nil && !doc.UpdatedAt.Before(*q.before) {
			continue
		}
		result = append(result, doc)
	}
	return result, nil
}

func (q *docsQ) Insert(value data.FiscalDocument) (*data.FiscalDocument, error) {
	q.docs[value.ID] = value
	return &value, nil
}

func (q *docsQ) Update(value data.FiscalDocument) (*data.FiscalDocument, error) {
	value.UpdatedAt = time.Now()
	q.docs[value.ID] = value
	return &value, nil
}

func (q *docsQ) FilterByID(uuid.UUID) data.FiscalDocumentQ { return q }

func (q *docsQ) FilterByAccessKey(string) data.FiscalDocumentQ { return q }

func (q *docsQ) FilterByStatus(status types.DocumentStatus) data.FiscalDocumentQ {
	q.byStatus = &status
	return q
}

func (q *docsQ) FilterUpdatedBefore(cutoff time.Time) data.FiscalDocumentQ {
	q.before = &cutoff
	return q
}

type companiesQ struct {
	company data.Company
}

func (q *companiesQ) New() data.CompanyQ                    { return q }
func (q *companiesQ) ResetFilters() data.CompanyQ           { return q }
func (q *companiesQ) Get() (*data.Company, error)           { c := q.company; return &c, nil }
func (q *companiesQ) FilterByID(uuid.UUID) data.CompanyQ    { return q }
func (q *companiesQ) FilterByCNPJ(string) data.CompanyQ     { return q }
func (q *companiesQ) Insert(c data.Company) (*data.Company, error) {
	return &c, nil
}

type queryTransport struct {
	result sefaz.Result
	hits   int
}

func (t *queryTransport) Authorize(context.Context, string, types.Environment, string) sefaz.Result {
	return sefaz.Result{}
}

func (t *queryTransport) Query(_ context.Context, _ string, _ types.Environment, _ string) sefaz.Result {
	t.hits++
	return t.result
}

func (t *queryTransport) Cancel(context.Context, sefaz.CancelRequest) sefaz.Result {
	return sefaz.Result{}
}

func stuckDocument(updatedAt time.Time, withKey bool) data.FiscalDocument {
	doc := data.FiscalDocument{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		Number:    1,
		Series:    1,
		Status:    types.StatusProcessing,
		UpdatedAt: updatedAt,
	}
	if withKey {
		key := "35240123456789000123550010000000123456789012"
		doc.AccessKey = &key
	}
	return doc
}

func setup(result sefaz.Result, docs ...data.FiscalDocument) (*Reconciler, *docsQ, *queryTransport) {
	q := &docsQ{docs: make(map[uuid.UUID]data.FiscalDocument)}
	for _, doc := range docs {
		q.docs[doc.ID] = doc
	}
	transport := &queryTransport{result: result}

	r := New(Opts{
		Log:        logan.New().Level(logan.FatalLevel),
		DocumentsQ: q,
		CompaniesQ: &companiesQ{company: data.Company{UF: "SP", Environment: types.EnvHomologacao}},
		Transport:  transport,
		StaleAfter: 5 * time.Minute,
		Now:        func() time.Time { return testNow },
	})

	return r, q, transport
}

func TestTickFoldsAuthorized(t *testing.T) {
	doc := stuckDocument(testNow.Add(-time.Hour), true)
	r, q, _ := setup(sefaz.Result{
		Code:     sefaz.CodeAuthorized,
		Protocol: "135240000000001",
		OK:       true,
	}, doc)

	require.NoError(t, r.Tick(context.Background()))

	got := q.docs[doc.ID]
	assert.Equal(t, types.StatusAuthorized, got.Status)
	require.NotNil(t, got.Protocol)
	assert.Equal(t, "135240000000001", *got.Protocol)
}

func TestTickFoldsDefinitiveRejection(t *testing.T) {
	doc := stuckDocument(testNow.Add(-time.Hour), true)
	r, q, _ := setup(sefaz.Result{Code: "217", Message: "NF-e nao consta na base"}, doc)

	require.NoError(t, r.Tick(context.Background()))

	got := q.docs[doc.ID]
	assert.Equal(t, types.StatusError, got.Status)
	require.NotNil(t, got.RejectionCode)
	assert.Equal(t, "217", *got.RejectionCode)
}

func TestTickLeavesTransientAlone(t *testing.T) {
	doc := stuckDocument(testNow.Add(-time.Hour), true)
	r, q, _ := setup(sefaz.Result{Code: "105", Message: "Lote em processamento"}, doc)

	require.NoError(t, r.Tick(context.Background()))

	assert.Equal(t, types.StatusProcessing, q.docs[doc.ID].Status)
}

func TestTickLeavesTransportFailureAlone(t *testing.T) {
	doc := stuckDocument(testNow.Add(-time.Hour), true)
	r, q, _ := setup(sefaz.Result{
		Code: sefaz.CodeLocalTransport,
		Kind: types.TransportFailureErr.Ptr(),
	}, doc)

	require.NoError(t, r.Tick(context.Background()))

	assert.Equal(t, types.StatusProcessing, q.docs[doc.ID].Status)
}

func TestTickSkipsFreshDocuments(t *testing.T) {
	doc := stuckDocument(testNow.Add(-time.Minute), true)
	r, q, transport := setup(sefaz.Result{Code: sefaz.CodeAuthorized, OK: true}, doc)

	require.NoError(t, r.Tick(context.Background()))

	assert.Zero(t, transport.hits)
	assert.Equal(t, types.StatusProcessing, q.docs[doc.ID].Status)
}

func TestTickFailsDocumentWithoutKey(t *testing.T) {
	doc := stuckDocument(testNow.Add(-time.Hour), false)
	r, q, transport := setup(sefaz.Result{}, doc)

	require.NoError(t, r.Tick(context.Background()))

	assert.Zero(t, transport.hits)
	assert.Equal(t, types.StatusError, q.docs[doc.ID].Status)
}
