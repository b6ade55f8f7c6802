package scanner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/threatsmith/threatsmith/internal/config"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	"github.com/threatsmith/threatsmith/internal/infrastructure/monitoring"
	"github.com/threatsmith/threatsmith/internal/infrastructure/persistence/postgres"
	"github.com/threatsmith/threatsmith/pkg/constants"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

var testMetrics = monitoring.NewMetrics()

func newTestPoller(t *testing.T, url string) (*Poller, repository.VulnerabilityRepository) {
	t.Helper()
	log := logger.NewNoopLogger()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(db))

	vulns := postgres.NewVulnerabilityRepository(db, log)
	cfg := &config.ScannerConfig{
		Enabled:      true,
		PollInterval: time.Minute,
		HTTPTimeout:  5 * time.Second,
		Endpoints:    []config.ScannerTarget{{Name: "trivy", URL: url}},
	}
	return NewPoller(cfg, vulns, testMetrics, log), vulns
}

func TestPollOneImportsFindings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": "CVE-2026-0001", "title": "OpenSSL heap overflow", "severity": "critical", "cve": "CVE-2026-0001"},
			{"id": "F-2", "title": "Outdated base image", "severity": "weird-value"},
			{"id": "", "title": "ignored, no id"}
		]`)
	}))
	defer server.Close()

	poller, vulns := newTestPoller(t, server.URL)
	count, err := poller.pollOne(context.Background(), config.ScannerTarget{Name: "trivy", URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stored, err := vulns.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)

	bySeverity := map[string]constants.VulnerabilitySeverity{}
	for _, v := range stored {
		bySeverity[v.ExternalID] = v.Severity
		assert.Equal(t, "trivy", v.Scanner)
	}
	assert.Equal(t, constants.SeverityCritical, bySeverity["CVE-2026-0001"])
	// Unknown severities degrade to informational.
	assert.Equal(t, constants.SeverityInfo, bySeverity["F-2"])
}

func TestPollOneUpsertsByExternalID(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"id": "F-1", "title": "Finding v%d", "severity": "high"}]`, calls)
	}))
	defer server.Close()

	poller, vulns := newTestPoller(t, server.URL)
	target := config.ScannerTarget{Name: "trivy", URL: server.URL}

	_, err := poller.pollOne(context.Background(), target)
	require.NoError(t, err)
	_, err = poller.pollOne(context.Background(), target)
	require.NoError(t, err)

	stored, err := vulns.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Finding v2", stored[0].Title)
}

func TestPollOneBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	poller, _ := newTestPoller(t, server.URL)
	_, err := poller.pollOne(context.Background(), config.ScannerTarget{Name: "trivy", URL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
