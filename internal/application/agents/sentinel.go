package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tributa/backend/internal/domain/alert"
	"github.com/tributa/backend/internal/domain/document"
	"github.com/tributa/backend/internal/infrastructure/config"
	applogger "github.com/tributa/backend/internal/infrastructure/logger"
	"github.com/tributa/backend/internal/infrastructure/telemetry"
)

// SentinelName identifies the integrity auditor in alerts and logs
const SentinelName = "sentinel"

// sentinelAlertTitle is the fixed category string for every sentinel finding.
// Because it is identical across documents, the dedup key is the document id
// instead of the title.
const sentinelAlertTitle = "Document integrity issues detected"

// Sentinel audits the most recent scanned documents for structural and
// fiscal-math errors: invalid issuer NIF, tax exceeding total, declared
// taxable base diverging from total minus tax, and upstream fraud tags.
// One alert per failing document, keyed by the document id.
type Sentinel struct {
	reader document.AggregateReader
	alerts alert.Store
	cfg    config.AgentsConfig
	logger *zap.Logger
}

// NewSentinel creates the integrity auditor
func NewSentinel(reader document.AggregateReader, alerts alert.Store, cfg config.AgentsConfig, logger *zap.Logger) *Sentinel {
	return &Sentinel{reader: reader, alerts: alerts, cfg: cfg, logger: logger}
}

// Name returns the agent name
func (s *Sentinel) Name() string { return SentinelName }

// Run audits one batch of recent documents. A failure reading the batch
// aborts the run; a failure on one document is logged and counted, and the
// loop continues.
func (s *Sentinel) Run(ctx context.Context) (Report, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, SentinelName, "run")
	defer span.End()

	runID := uuid.New().String()
	ctx, log := applogger.WithRunID(ctx, s.logger, runID)
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, runID)

	start := time.Now()
	report := Report{Agent: SentinelName}

	log.Info("Sentinel run started", zap.Int("batch_size", s.cfg.ScanBatchSize))

	docs, err := s.reader.RecentScanned(ctx, s.cfg.ScanBatchSize)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ObserveAgentRun(SentinelName, telemetry.ResultError, time.Since(start))
		log.Error("Sentinel run failed: could not load documents", zap.Error(err))
		return report, fmt.Errorf("failed to load recent documents: %w", err)
	}

	for i := range docs {
		doc := &docs[i]
		if err := s.auditDocument(ctx, doc, &report); err != nil {
			report.Failed++
			log.Warn("Document audit failed",
				zap.String("document_id", doc.ID.String()),
				zap.String("company_id", doc.CompanyID.String()),
				zap.Error(err),
			)
			continue
		}
		report.Processed++
	}

	telemetry.AddAgentEntities(SentinelName, report.Processed, report.Failed)
	telemetry.ObserveAgentRun(SentinelName, telemetry.ResultSuccess, time.Since(start))
	log.Info("Sentinel run completed",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.Int("alerts_created", report.Created),
		zap.Int("alerts_skipped", report.Skipped),
	)
	return report, nil
}

// auditDocument evaluates every integrity check for one document and raises
// a single alert carrying all failures
func (s *Sentinel) auditDocument(ctx context.Context, doc *document.Document, report *Report) error {
	data, err := document.ParsePayload(doc.Payload)
	if err != nil {
		return err
	}

	var (
		failures []string
		severity alert.Severity
	)
	escalate := func(to alert.Severity) {
		if severity != alert.SeverityCritical {
			severity = to
		}
	}

	if !document.ValidTaxID(data.IssuerTaxID) {
		failures = append(failures, fmt.Sprintf("issuer NIF %q does not normalize to 10 digits", data.IssuerTaxID))
		escalate(alert.SeverityCritical)
	}

	if data.TaxAmount.GreaterThan(data.TotalAmount) {
		failures = append(failures, fmt.Sprintf("tax amount %s exceeds total amount %s", data.TaxAmount, data.TotalAmount))
		escalate(alert.SeverityCritical)
	}

	// Base consistency only applies when a base was actually declared.
	// The tolerance absorbs minor OCR misreads, so this stays a warning.
	if data.HasTaxableBase && data.TaxableBase.IsPositive() && data.TotalAmount.IsPositive() {
		derived := data.TotalAmount.Sub(data.TaxAmount)
		diff := derived.Sub(data.TaxableBase).Abs()
		if diff.GreaterThan(decimalFromFloat(s.cfg.BaseToleranceAOA)) {
			failures = append(failures, fmt.Sprintf(
				"declared taxable base %s diverges from total minus tax %s by %s", data.TaxableBase, derived, diff))
			escalate(alert.SeverityWarning)
		}
	}

	if data.FraudRisk == document.FraudRiskHigh || data.FraudRisk == document.FraudRiskCritical {
		failures = append(failures, fmt.Sprintf("upstream fraud risk tag is %s", data.FraudRisk))
		escalate(alert.SeverityCritical)
	}

	if len(failures) == 0 {
		return nil
	}

	metadata := map[string]interface{}{
		"document_id":   doc.ID.String(),
		"total_amount":  data.TotalAmount.String(),
		"tax_amount":    data.TaxAmount.String(),
		"issuer_tax_id": data.IssuerTaxID,
		"divergences":   failures,
	}
	if data.HasTaxableBase {
		metadata["taxable_base"] = data.TaxableBase.String()
	}
	if data.FraudRisk != "" {
		metadata["fraud_risk"] = string(data.FraudRisk)
	}
	if len(data.Fallbacks) > 0 {
		metadata["defaulted_fields"] = data.Fallbacks
	}

	return raise(ctx, s.alerts, alert.Command{
		CompanyID: doc.CompanyID,
		AgentName: SentinelName,
		Severity:  severity,
		Title:     sentinelAlertTitle,
		Message:   strings.Join(failures, "; "),
		Metadata:  metadata,
		DedupKey:  doc.ID.String(),
	}, report)
}
