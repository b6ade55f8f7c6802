package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	domainservice "github.com/threatsmith/threatsmith/internal/domain/service"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	"github.com/threatsmith/threatsmith/internal/infrastructure/audit"
	"github.com/threatsmith/threatsmith/internal/infrastructure/monitoring"
	"github.com/threatsmith/threatsmith/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/threatsmith/threatsmith/internal/infrastructure/persistence/redis"
	"github.com/threatsmith/threatsmith/pkg/constants"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// Prometheus collectors register globally, so the whole package shares one
// metrics instance.
var testMetrics = monitoring.NewMetrics()

type mergeFixture struct {
	svc          *MergeAppService
	threatModels repository.ThreatModelRepository
	threats      repository.ThreatRepository
	safeguards   repository.SafeguardRepository
	docs         repository.DocumentStore
	redis        *miniredis.Miniredis
}

func newMergeFixture(t *testing.T) *mergeFixture {
	t.Helper()
	log := logger.NewNoopLogger()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(db))

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	threatModels := postgres.NewThreatModelRepository(db, log)
	threats := postgres.NewThreatRepository(db, log)
	safeguards := postgres.NewSafeguardRepository(db, log)
	docs := redisinfra.NewDocumentStore(client, log)

	svc := NewMergeAppService(
		postgres.NewTxManager(db, log),
		threatModels, threats, safeguards, docs,
		domainservice.NewThreatExtractor(),
		domainservice.NewSimilarityMatcher(),
		domainservice.NewKeywordRiskScorer(),
		audit.NoopPublisher{},
		testMetrics,
		log,
	)
	return &mergeFixture{
		svc:          svc,
		threatModels: threatModels,
		threats:      threats,
		safeguards:   safeguards,
		docs:         docs,
		redis:        mr,
	}
}

func (f *mergeFixture) createModel(t *testing.T, id, name string) *models.ThreatModel {
	t.Helper()
	model := &models.ThreatModel{
		ID:     id,
		Name:   name,
		Status: constants.ModelStatusApproved,
	}
	require.NoError(t, f.threatModels.Create(context.Background(), model))
	return model
}

func (f *mergeFixture) createThreat(t *testing.T, modelID, title, description string, score int) *models.Threat {
	t.Helper()
	threat := &models.Threat{
		ModelID:     modelID,
		Title:       title,
		Description: description,
		RiskScore:   score,
	}
	require.NoError(t, f.threats.Create(context.Background(), threat))
	return threat
}

func detailByID(metrics *models.MergeMetrics, id string) *models.ModelMergeDetail {
	for i := range metrics.ModelDetails {
		if metrics.ModelDetails[i].ID == id {
			return &metrics.ModelDetails[i]
		}
	}
	return nil
}

func TestMergeValidation(t *testing.T) {
	f := newMergeFixture(t)
	ctx := context.Background()

	_, err := f.svc.MergeModels(ctx, "", []string{"m2"}, "analyst")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	// Sources that reduce to nothing after filtering the primary.
	_, err = f.svc.MergeModels(ctx, "m1", []string{"m1", "  ", "m1"}, "analyst")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestMergeMissingPrimaryIsFatal(t *testing.T) {
	f := newMergeFixture(t)
	f.createModel(t, "src", "Source")
	f.createThreat(t, "src", "Some Threat", "A description that is long enough to matter.", 40)

	_, err := f.svc.MergeModels(context.Background(), "ghost", []string{"src"}, "analyst")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMergeMissingDocumentPrimaryIsFatal(t *testing.T) {
	f := newMergeFixture(t)
	f.createModel(t, "src", "Source")

	_, err := f.svc.MergeModels(context.Background(), "redis_ghost", []string{"src"}, "analyst")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMergeRelationalIntoRelational(t *testing.T) {
	f := newMergeFixture(t)
	ctx := context.Background()

	f.createModel(t, "primary", "Payments")
	f.createThreat(t, "primary", "SQL Injection",
		"Attacker injects SQL through unsanitized input fields.", 80)

	f.createModel(t, "source", "Payments Review")
	f.createThreat(t, "source", "SQL Injection",
		"Attacker injects SQL through unsanitized input fields.", 80)
	xss := f.createThreat(t, "source", "Cross-Site Scripting",
		"Reflected script payloads execute in the victim browser session.", 70)
	f.createThreat(t, "source", "Credential Stuffing",
		"Reused passwords from unrelated breaches enable automated account takeover.", 0)

	require.NoError(t, f.safeguards.Create(ctx, &models.Safeguard{
		ThreatID: xss.ID,
		Name:     "Output encoding",
	}))

	result, err := f.svc.MergeModels(ctx, "primary", []string{"source"}, "analyst@example.com")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Metrics.TotalThreatsAdded)
	assert.Equal(t, 1, result.Metrics.TotalThreatsSkipped)
	assert.Equal(t, 1, result.Metrics.TotalSafeguardsAdded)
	assert.Equal(t, 1, result.Metrics.SourceModelsProcessed)
	assert.Equal(t, 0, result.Metrics.RedisModelsProcessed)

	detail := detailByID(result.Metrics, "source")
	require.NotNil(t, detail)
	assert.Equal(t, 3, detail.TotalThreats)
	assert.Equal(t, 2, detail.ThreatsAdded)
	assert.Equal(t, 1, detail.ThreatsSkipped)

	assert.Equal(t, models.ModelKindRelational, result.Model.Kind)
	assert.Equal(t, 2, result.Model.Version)
	assert.Equal(t, string(constants.ModelStatusDraft), result.Model.Status)
	assert.Equal(t, 3, result.Model.ThreatCount)

	// Provenance and scoring of the merged rows.
	merged, err := f.threats.ListByModel(ctx, "primary")
	require.NoError(t, err)
	require.Len(t, merged, 3)
	byTitle := map[string]*models.Threat{}
	for _, th := range merged {
		byTitle[th.Title] = th
	}
	require.Contains(t, byTitle, "Credential Stuffing")
	assert.Equal(t, "source", byTitle["Credential Stuffing"].SourceModelID)
	assert.Equal(t, "Payments Review", byTitle["Credential Stuffing"].SourceModelName)
	assert.Equal(t, constants.NeutralRiskScore, byTitle["Credential Stuffing"].RiskScore)
	assert.Equal(t, 70, byTitle["Cross-Site Scripting"].RiskScore)

	// Merge metadata is persisted on the primary row.
	primary, err := f.threatModels.FindByID(ctx, "primary")
	require.NoError(t, err)
	meta, err := primary.GetMergeMetadata()
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "analyst@example.com", meta.MergedBy)
	assert.Equal(t, []string{"source"}, meta.SourceModels)

	// Re-merging the same source is a no-op apart from bookkeeping.
	again, err := f.svc.MergeModels(ctx, "primary", []string{"source"}, "analyst@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Metrics.TotalThreatsAdded)
	assert.Equal(t, 3, again.Metrics.TotalThreatsSkipped)
	assert.Equal(t, 3, again.Model.ThreatCount)
	assert.Equal(t, 3, again.Model.Version)
}

func TestMergeDocumentSourceIntoRelational(t *testing.T) {
	f := newMergeFixture(t)
	ctx := context.Background()

	f.createModel(t, "primary", "Checkout")
	f.createThreat(t, "primary", "SQL Injection",
		"Attacker injects SQL through unsanitized input fields.", 80)
	f.createThreat(t, "primary", "Weak Passwords",
		"Users may choose short guessable passwords for their accounts.", 40)

	require.NoError(t, f.docs.PutDocument(ctx, &models.ThreatModelDocument{
		ID:    "gen1",
		Title: "Generated Checkout Review",
		Content: `Threat: sql injection
Description: Malicious SQL statements are smuggled into query parameters.

Threat: Phishing Campaign
Description: Employees are tricked into disclosing credentials on cloned pages.

Threat: Insecure Deserialization
Description: Crafted serialized payloads reach the order import endpoint unchecked.
Mitigation: Validate types before deserializing.`,
		ThreatCount: 3,
	}))

	result, err := f.svc.MergeModels(ctx, "primary", []string{"redis_gen1"}, "analyst")
	require.NoError(t, err)

	// The lower-cased title still matches case-insensitively.
	assert.Equal(t, 2, result.Metrics.TotalThreatsAdded)
	assert.Equal(t, 1, result.Metrics.TotalThreatsSkipped)
	assert.Equal(t, 1, result.Metrics.RedisModelsProcessed)

	detail := detailByID(result.Metrics, "redis_gen1")
	require.NotNil(t, detail)
	assert.Equal(t, 3, detail.TotalThreats)
	assert.Equal(t, 2, detail.ThreatsAdded)
	assert.Equal(t, 1, detail.ThreatsSkipped)

	merged, err := f.threats.ListByModel(ctx, "primary")
	require.NoError(t, err)
	require.Len(t, merged, 4)
	var added *models.Threat
	for _, th := range merged {
		if th.Title == "Insecure Deserialization" {
			added = th
		}
	}
	require.NotNil(t, added)
	assert.Equal(t, "redis_gen1", added.SourceModelID)
	assert.Equal(t, "Generated Checkout Review", added.SourceModelName)
	assert.Equal(t, "Validate types before deserializing.", added.Mitigation)
	// Extracted candidates carry no score, so one is computed.
	assert.GreaterOrEqual(t, added.RiskScore, constants.MinRiskScore)
	assert.LessOrEqual(t, added.RiskScore, constants.MaxRiskScore)
}

func TestMergeIntoEmptyDocumentPrimary(t *testing.T) {
	f := newMergeFixture(t)
	ctx := context.Background()

	require.NoError(t, f.docs.PutDocument(ctx, &models.ThreatModelDocument{
		ID:      "blank",
		Title:   "Fresh Model",
		Content: " ",
	}))

	f.createModel(t, "source", "Source")
	f.createThreat(t, "source", "Stored XSS",
		"Persisted script payloads render unescaped inside the admin console.", 75)
	f.createThreat(t, "source", "Laptop Theft",
		"Unencrypted laptops leave customer data exposed when stolen off-site.", 45)

	result, err := f.svc.MergeModels(ctx, "redis_blank", []string{"source"}, "merge-bot")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Metrics.TotalThreatsAdded)
	assert.Equal(t, 0, result.Metrics.TotalThreatsSkipped)
	assert.Equal(t, 2, result.Model.ThreatCount)

	meta, err := f.docs.GetMergeMetadata(ctx, "blank")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "merge-bot", meta.MergedBy)
}

func TestMergeRelationalSourceIntoDocument(t *testing.T) {
	f := newMergeFixture(t)
	ctx := context.Background()

	require.NoError(t, f.docs.PutDocument(ctx, &models.ThreatModelDocument{
		ID:    "prim",
		Title: "Platform Threat Model",
		Content: `Threat: Phishing Campaign
Description: Employees are tricked into disclosing credentials on cloned pages.
Mitigation: Awareness training.`,
		ThreatCount: 1,
	}))

	f.createModel(t, "source", "Office Review")
	f.createThreat(t, "source", "Phishing Campaign",
		"Employees are tricked into disclosing credentials on cloned pages.", 60)
	f.createThreat(t, "source", "Laptop Theft",
		"Unencrypted laptops leave customer data exposed when stolen off-site.", 45)

	result, err := f.svc.MergeModels(ctx, "redis_prim", []string{"source"}, "analyst")
	require.NoError(t, err)

	assert.Equal(t, models.ModelKindDocument, result.Model.Kind)
	assert.Equal(t, "redis_prim", result.Model.ID)
	assert.Equal(t, 1, result.Metrics.TotalThreatsAdded)
	assert.Equal(t, 1, result.Metrics.TotalThreatsSkipped)
	assert.Equal(t, 2, result.Model.ThreatCount)

	doc, err := f.docs.GetDocument(ctx, "prim")
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "Laptop Theft")
	assert.Contains(t, doc.Content, "merged from Office Review (source)")
	assert.NotContains(t, strings.TrimPrefix(doc.Content, "Threat: Phishing Campaign"),
		"Threat: Phishing Campaign")
	assert.Equal(t, int64(2), doc.Generation)
	assert.Equal(t, 2, doc.ThreatCount)

	meta, err := f.docs.GetMergeMetadata(ctx, "prim")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "analyst", meta.MergedBy)
	assert.Equal(t, []string{"source"}, meta.SourceModels)

	// A second merge finds everything already present.
	again, err := f.svc.MergeModels(ctx, "redis_prim", []string{"source"}, "analyst")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Metrics.TotalThreatsAdded)
	assert.Equal(t, 2, again.Metrics.TotalThreatsSkipped)
	assert.Equal(t, 2, again.Model.ThreatCount)
}

func TestMergeUnavailableSourceIsSkipped(t *testing.T) {
	f := newMergeFixture(t)
	ctx := context.Background()

	f.createModel(t, "primary", "Primary")
	f.createModel(t, "source", "Source")
	f.createThreat(t, "source", "Stored XSS",
		"Persisted script payloads render unescaped inside the admin console.", 75)

	result, err := f.svc.MergeModels(ctx, "primary", []string{"ghost", "source"}, "analyst")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Metrics.TotalThreatsAdded)
	assert.Equal(t, 1, result.Metrics.SourceModelsProcessed)

	ghost := detailByID(result.Metrics, "ghost")
	require.NotNil(t, ghost)
	assert.Equal(t, 0, ghost.TotalThreats)
	assert.Equal(t, 0, ghost.ThreatsAdded)

	good := detailByID(result.Metrics, "source")
	require.NotNil(t, good)
	assert.Equal(t, 1, good.ThreatsAdded)
}
