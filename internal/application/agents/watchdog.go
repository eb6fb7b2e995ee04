package agents

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tributa/backend/internal/domain/alert"
	"github.com/tributa/backend/internal/domain/document"
	"github.com/tributa/backend/internal/infrastructure/config"
	applogger "github.com/tributa/backend/internal/infrastructure/logger"
	"github.com/tributa/backend/internal/infrastructure/telemetry"
)

// WatchdogName identifies the compliance watchdog in alerts and logs
const WatchdogName = "watchdog"

const watchdogAlertTitle = "Compliance review needed"

// Watchdog inspects every completed document of the current reporting period
// for missing required fields (invoice number, issuer NIF, issue date) and
// for duplicate submissions sharing the same (issuer NIF, total, issue date)
// signature. Findings accumulate per company into one INFO alert.
type Watchdog struct {
	reader document.AggregateReader
	alerts alert.Store
	cfg    config.AgentsConfig
	logger *zap.Logger

	// now is swappable so tests can pin the reporting period
	now func() time.Time
}

// NewWatchdog creates the compliance watchdog
func NewWatchdog(reader document.AggregateReader, alerts alert.Store, cfg config.AgentsConfig, logger *zap.Logger) *Watchdog {
	return &Watchdog{reader: reader, alerts: alerts, cfg: cfg, logger: logger, now: time.Now}
}

// Name returns the agent name
func (w *Watchdog) Name() string { return WatchdogName }

// companyFindings accumulates one company's flagged documents across both checks
type companyFindings struct {
	missing    map[uuid.UUID]bool
	duplicates map[uuid.UUID]bool
}

// Run checks the month-to-date reporting period. Documents with unreadable
// payloads are counted as failed and skipped; the rest of the batch
// continues.
func (w *Watchdog) Run(ctx context.Context) (Report, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, WatchdogName, "run")
	defer span.End()

	runID := uuid.New().String()
	ctx, log := applogger.WithRunID(ctx, w.logger, runID)
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, runID)

	start := time.Now()
	report := Report{Agent: WatchdogName}

	from, to := w.reportingPeriod()
	log.Info("Watchdog run started",
		zap.Time("period_start", from),
		zap.Time("period_end", to),
	)

	docs, err := w.reader.PeriodDocuments(ctx, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ObserveAgentRun(WatchdogName, telemetry.ResultError, time.Since(start))
		log.Error("Watchdog run failed: could not load period documents", zap.Error(err))
		return report, fmt.Errorf("failed to load period documents: %w", err)
	}

	type parsedDoc struct {
		doc  *document.Document
		data *document.FiscalData
	}

	findings := make(map[uuid.UUID]*companyFindings)
	group := func(companyID uuid.UUID) *companyFindings {
		f, ok := findings[companyID]
		if !ok {
			f = &companyFindings{missing: map[uuid.UUID]bool{}, duplicates: map[uuid.UUID]bool{}}
			findings[companyID] = f
		}
		return f
	}

	// First pass: resolve payloads, flag missing fields, build signatures
	signatures := make(map[string][]parsedDoc)
	for i := range docs {
		doc := &docs[i]
		data, err := document.ParsePayload(doc.Payload)
		if err != nil {
			report.Failed++
			log.Warn("Document payload unreadable",
				zap.String("document_id", doc.ID.String()),
				zap.String("company_id", doc.CompanyID.String()),
				zap.Error(err),
			)
			continue
		}
		report.Processed++

		if w.missingRequiredField(data) {
			group(doc.CompanyID).missing[doc.ID] = true
		}

		// Documents missing a signature component are already flagged by
		// the field check; grouping their defaulted values would fabricate
		// duplicates out of absent data.
		if sig, ok := duplicateSignature(data); ok {
			signatures[sig] = append(signatures[sig], parsedDoc{doc: doc, data: data})
		}
	}

	// Second pass: every member of a multi-document signature group is a
	// duplicate, attributed to its own company
	for _, members := range signatures {
		if len(members) < 2 {
			continue
		}
		for _, member := range members {
			group(member.doc.CompanyID).duplicates[member.doc.ID] = true
		}
	}

	for companyID, f := range findings {
		if err := w.raiseCompanyAlert(ctx, companyID, f, from, to, &report); err != nil {
			report.Failed++
			log.Warn("Compliance alert write failed",
				zap.String("company_id", companyID.String()),
				zap.Error(err),
			)
		}
	}

	telemetry.AddAgentEntities(WatchdogName, report.Processed, report.Failed)
	telemetry.ObserveAgentRun(WatchdogName, telemetry.ResultSuccess, time.Since(start))
	log.Info("Watchdog run completed",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.Int("alerts_created", report.Created),
		zap.Int("alerts_skipped", report.Skipped),
	)
	return report, nil
}

// reportingPeriod returns the month-to-date window in UTC
func (w *Watchdog) reportingPeriod() (time.Time, time.Time) {
	now := w.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, now
}

func (w *Watchdog) missingRequiredField(data *document.FiscalData) bool {
	return data.FellBack(document.FieldInvoiceNumber) ||
		data.FellBack(document.FieldIssuerTaxID) ||
		data.FellBack(document.FieldIssueDate)
}

// duplicateSignature builds the composite identity used for duplicate
// grouping. All three components must have resolved from the payload.
func duplicateSignature(data *document.FiscalData) (string, bool) {
	if data.FellBack(document.FieldIssuerTaxID) ||
		data.FellBack(document.FieldTotal) ||
		data.FellBack(document.FieldIssueDate) {
		return "", false
	}
	nif := document.NormalizeTaxID(data.IssuerTaxID)
	return fmt.Sprintf("%s|%s|%s", nif, data.TotalAmount.String(), data.IssueDate), true
}

func (w *Watchdog) raiseCompanyAlert(ctx context.Context, companyID uuid.UUID, f *companyFindings, from, to time.Time, report *Report) error {
	flagged := make(map[uuid.UUID]bool, len(f.missing)+len(f.duplicates))
	for id := range f.missing {
		flagged[id] = true
	}
	for id := range f.duplicates {
		flagged[id] = true
	}
	if len(flagged) == 0 {
		return nil
	}

	ids := make([]string, 0, len(flagged))
	for id := range flagged {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)

	return raise(ctx, w.alerts, alert.Command{
		CompanyID: companyID,
		AgentName: WatchdogName,
		Severity:  alert.SeverityInfo,
		Title:     watchdogAlertTitle,
		Message: fmt.Sprintf(
			"%d document(s) need review this period: %d with missing required fields, %d suspected duplicates",
			len(flagged), len(f.missing), len(f.duplicates)),
		Metadata: map[string]interface{}{
			"missing_fields_count": len(f.missing),
			"duplicates_count":     len(f.duplicates),
			"flagged_documents":    ids,
			"period_start":         from.Format(time.RFC3339),
			"period_end":           to.Format(time.RFC3339),
		},
	}, report)
}
