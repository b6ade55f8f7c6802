// Package scanner polls external vulnerability scanners and imports their
// findings as vulnerability rows.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/threatsmith/threatsmith/internal/config"
	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	"github.com/threatsmith/threatsmith/internal/infrastructure/monitoring"
	"github.com/threatsmith/threatsmith/pkg/constants"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// finding is the wire format scanners report.
type finding struct {
	ID          string `json:"id"`
	ComponentID string `json:"component_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	CVE         string `json:"cve"`
}

// Poller periodically fetches findings from each configured scanner endpoint
// and upserts them. A failing endpoint is logged and retried on the next
// tick; it never stops the poll loop or the other endpoints.
type Poller struct {
	cfg     *config.ScannerConfig
	vulns   repository.VulnerabilityRepository
	client  *http.Client
	metrics *monitoring.Metrics
	log     logger.Logger
}

// NewPoller creates a scanner poller.
func NewPoller(
	cfg *config.ScannerConfig,
	vulns repository.VulnerabilityRepository,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *Poller {
	return &Poller{
		cfg:     cfg,
		vulns:   vulns,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		metrics: metrics,
		log:     log.WithComponent("ScannerPoller"),
	}
}

// Run polls until the context is cancelled. It returns the context error on
// shutdown.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.log.Info(ctx, "Scanner polling started",
		logger.Int("endpoints", len(p.cfg.Endpoints)),
		logger.Duration("interval", p.cfg.PollInterval),
	)

	for {
		select {
		case <-ctx.Done():
			p.log.Info(ctx, "Scanner polling stopped")
			return ctx.Err()
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

// pollAll fans out over the configured endpoints concurrently.
func (p *Poller) pollAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, target := range p.cfg.Endpoints {
		target := target
		g.Go(func() error {
			count, err := p.pollOne(gctx, target)
			if err != nil {
				p.metrics.RecordScannerPoll(target.Name, "error", 0)
				p.log.Warn(gctx, "Scanner poll failed",
					logger.String("scanner", target.Name),
					logger.String("error", err.Error()),
				)
				return nil
			}
			p.metrics.RecordScannerPoll(target.Name, "success", count)
			return nil
		})
	}
	_ = g.Wait()
}

// pollOne fetches and imports findings from a single scanner.
func (p *Poller) pollOne(ctx context.Context, target config.ScannerTarget) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scanner %s returned status %d", target.Name, resp.StatusCode)
	}

	var findings []finding
	if err := json.NewDecoder(resp.Body).Decode(&findings); err != nil {
		return 0, fmt.Errorf("failed to decode findings from %s: %w", target.Name, err)
	}

	now := time.Now().UTC()
	imported := 0
	for _, f := range findings {
		if f.ID == "" || f.Title == "" {
			continue
		}
		vuln := &models.Vulnerability{
			ComponentID: f.ComponentID,
			Scanner:     target.Name,
			ExternalID:  f.ID,
			Title:       f.Title,
			Description: f.Description,
			Severity:    normalizeSeverity(f.Severity),
			CVE:         f.CVE,
			FirstSeenAt: now,
			LastSeenAt:  now,
		}
		if err := p.vulns.Upsert(ctx, vuln); err != nil {
			p.log.Warn(ctx, "Failed to upsert finding",
				logger.String("scanner", target.Name),
				logger.String("external_id", f.ID),
				logger.String("error", err.Error()),
			)
			continue
		}
		imported++
	}
	return imported, nil
}

func normalizeSeverity(raw string) constants.VulnerabilitySeverity {
	switch constants.VulnerabilitySeverity(raw) {
	case constants.SeverityCritical, constants.SeverityHigh,
		constants.SeverityMedium, constants.SeverityLow:
		return constants.VulnerabilitySeverity(raw)
	default:
		return constants.SeverityInfo
	}
}
