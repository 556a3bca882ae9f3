package app

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/infrastructure/config"
	"github.com/prathap024-ctrl/pdf-rag/internal/testutil"
)

func newTestApp(t *testing.T, backend string) *App {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Index.Backend = backend
	cfg.Index.MaxAttempts = 1

	a, err := New(t.Context(), cfg, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestEndToEnd_FranceCapital(t *testing.T) {
	for _, backend := range []string{"sqlite", "memory"} {
		t.Run(backend, func(t *testing.T) {
			a := newTestApp(t, backend)
			ctx := t.Context()

			result, err := a.Service.Ingest(ctx, entities.Upload{Filename: "france.pdf", Data: testutil.FrancePDF(t)})
			require.NoError(t, err)
			assert.Equal(t, 3, result.Pages)
			assert.True(t, strings.HasPrefix(result.Document.CollectionID, "pdf-"))

			count, err := a.Index.Count(ctx, result.Document.CollectionID)
			require.NoError(t, err)
			assert.Equal(t, result.Chunks, count)

			answer, err := a.Service.Answer(ctx, result.Document.ID, "What is the capital of France?")
			require.NoError(t, err)
			assert.Contains(t, answer.Answer, "Paris")
			assert.LessOrEqual(t, len(answer.Context), 4)

			var texts []string
			for _, c := range answer.Context {
				texts = append(texts, c.Text)
			}
			assert.Contains(t, strings.Join(texts, "\n"), "The capital of France is Paris.")

			records, err := a.Service.History(ctx, result.Document.ID)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, result.Document.ID, records[0].DocumentID)
		})
	}
}

func TestEndToEnd_QARecordsFollowQueriedDocument(t *testing.T) {
	a := newTestApp(t, "memory")
	ctx := t.Context()

	first, err := a.Service.Ingest(ctx, entities.Upload{Filename: "france.pdf", Data: testutil.FrancePDF(t)})
	require.NoError(t, err)
	_, err = a.Service.Ingest(ctx, entities.Upload{Filename: "other.pdf", Data: testutil.BuildPDF(t, "Rivers flow into the sea.")})
	require.NoError(t, err)

	answer, err := a.Service.Answer(ctx, first.Document.ID, "What is the capital of France?")
	require.NoError(t, err)

	records, err := a.Service.History(ctx, first.Document.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, answer.RecordID, records[0].ID)
}

func TestEndToEnd_OutOfBandCollectionDelete(t *testing.T) {
	a := newTestApp(t, "sqlite")
	ctx := t.Context()

	result, err := a.Service.Ingest(ctx, entities.Upload{Filename: "france.pdf", Data: testutil.FrancePDF(t)})
	require.NoError(t, err)

	require.NoError(t, a.Index.DeleteCollection(ctx, result.Document.CollectionID))

	_, err = a.Service.Answer(ctx, result.Document.ID, "What is the capital of France?")
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.NotErrorIs(t, err, entities.ErrUpstream)
}

func TestEndToEnd_DeleteDocument(t *testing.T) {
	a := newTestApp(t, "sqlite")
	ctx := t.Context()

	result, err := a.Service.Ingest(ctx, entities.Upload{Filename: "france.pdf", Data: testutil.FrancePDF(t)})
	require.NoError(t, err)
	_, err = a.Service.Answer(ctx, result.Document.ID, "What is the capital of France?")
	require.NoError(t, err)

	require.NoError(t, a.Service.DeleteDocument(ctx, result.Document.ID))

	docs, err := a.Service.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	exists, err := a.Index.CollectionExists(ctx, result.Document.CollectionID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = a.Service.Answer(ctx, result.Document.ID, "What is the capital of France?")
	assert.ErrorIs(t, err, entities.ErrNotFound)

	err = a.Service.DeleteDocument(ctx, result.Document.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestEndToEnd_ReconcileAfterFailedIngest(t *testing.T) {
	a := newTestApp(t, "sqlite")
	ctx := t.Context()

	_, err := a.Service.Ingest(ctx, entities.Upload{Filename: "blank.pdf", Data: testutil.BuildPDF(t, "")})
	require.ErrorIs(t, err, entities.ErrValidation)

	require.NoError(t, a.Index.CreateCollection(ctx, "pdf-orphan", 8))

	report, err := a.NewReconciler(false, false).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pdf-orphan"}, report.OrphanCollections)
}

func TestEndToEnd_HTTP(t *testing.T) {
	a := newTestApp(t, "memory")
	server := httptest.NewServer(a.NewServer().Handler())
	defer server.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "france.pdf")
	require.NoError(t, err)
	part.Write(testutil.FrancePDF(t))
	require.NoError(t, mw.Close())

	resp, err := nethttp.Post(server.URL+"/api/pdfs", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	var uploaded struct {
		Document struct {
			ID int64 `json:"id"`
		} `json:"document"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	resp.Body.Close()

	resp, err = nethttp.Post(
		server.URL+"/api/pdfs/"+strconv.FormatInt(uploaded.Document.ID, 10)+"/answer",
		"application/json",
		strings.NewReader(`{"question":"What is the capital of France?"}`),
	)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var answered struct {
		Answer string `json:"answer"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answered))
	assert.Contains(t, answered.Answer, "Paris")
}
