package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

func newTestStore(t *testing.T) (repository.DocumentStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDocumentStore(client, logger.NewNoopLogger()), mr
}

func TestPutDocumentWritesKeyFamily(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	doc := &models.ThreatModelDocument{
		ID:          "d1",
		Title:       "Generated Model",
		Content:     "Threat: X\nDescription: something long enough.",
		ThreatCount: 1,
	}
	require.NoError(t, store.PutDocument(ctx, doc))

	title, err := mr.Get("tm:d1:title")
	require.NoError(t, err)
	assert.Equal(t, "Generated Model", title)

	content, err := mr.Get("tm:d1:content")
	require.NoError(t, err)
	assert.Equal(t, doc.Content, content)

	count, err := mr.Get("tm:d1:threat_count")
	require.NoError(t, err)
	assert.Equal(t, "1", count)

	generation, err := mr.Get("tm:d1:generation")
	require.NoError(t, err)
	assert.Equal(t, "1", generation)
}

func TestRawGetSet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "tm:x:title")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, store.Set(ctx, "tm:x:title", "Raw Title"))
	val, err := store.Get(ctx, "tm:x:title")
	require.NoError(t, err)
	assert.Equal(t, "Raw Title", val)
}

func TestGetDocumentRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	in := &models.ThreatModelDocument{
		ID:          "d2",
		Title:       "API Threat Model",
		Content:     "document body",
		ThreatCount: 4,
	}
	require.NoError(t, store.PutDocument(ctx, in))

	out, err := store.GetDocument(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, "API Threat Model", out.Title)
	assert.Equal(t, "document body", out.Content)
	assert.Equal(t, 4, out.ThreatCount)
	assert.Equal(t, int64(1), out.Generation)
}

func TestGetDocumentMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetDocument(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestExists(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PutDocument(ctx, &models.ThreatModelDocument{
		ID: "d3", Title: "T", Content: "C",
	}))
	ok, err = store.Exists(ctx, "d3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAppendSectionBumpsGeneration(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutDocument(ctx, &models.ThreatModelDocument{
		ID: "d4", Title: "T", Content: "original",
	}))

	newGen, err := store.AppendSection(ctx, "d4", "\nappended", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), newGen)

	doc, err := store.GetDocument(ctx, "d4")
	require.NoError(t, err)
	assert.Equal(t, "original\nappended", doc.Content)
	assert.Equal(t, int64(2), doc.Generation)
}

func TestAppendSectionStaleGenerationConflicts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutDocument(ctx, &models.ThreatModelDocument{
		ID: "d5", Title: "T", Content: "body",
	}))

	// Simulate a concurrent writer that already advanced the document.
	_, err := store.AppendSection(ctx, "d5", " first", 1)
	require.NoError(t, err)

	_, err = store.AppendSection(ctx, "d5", " stale", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	// The stale write must not have landed.
	doc, err := store.GetDocument(ctx, "d5")
	require.NoError(t, err)
	assert.Equal(t, "body first", doc.Content)
}

func TestIncrementThreatCount(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutDocument(ctx, &models.ThreatModelDocument{
		ID: "d6", Title: "T", Content: "C", ThreatCount: 2,
	}))

	count, err := store.IncrementThreatCount(ctx, "d6", 3)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestMergeMetadataRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	meta, err := store.GetMergeMetadata(ctx, "d7")
	require.NoError(t, err)
	assert.Nil(t, meta)

	in := &models.MergeMetadata{
		MergedBy:     "analyst",
		SourceModels: []string{"m1", "redis_m2"},
		Metrics:      models.MergeMetrics{TotalThreatsAdded: 2},
	}
	require.NoError(t, store.SetMergeMetadata(ctx, "d7", in))

	out, err := store.GetMergeMetadata(ctx, "d7")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "analyst", out.MergedBy)
	assert.Equal(t, []string{"m1", "redis_m2"}, out.SourceModels)
	assert.Equal(t, 2, out.Metrics.TotalThreatsAdded)
}
