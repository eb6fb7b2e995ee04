package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tributa/backend/internal/domain/alert"
	"github.com/tributa/backend/internal/domain/document"
	"github.com/tributa/backend/internal/infrastructure/config"
	applogger "github.com/tributa/backend/internal/infrastructure/logger"
	"github.com/tributa/backend/internal/infrastructure/telemetry"
)

// PredictorName identifies the spend forecaster in alerts and logs
const PredictorName = "predictor"

const predictorAlertTitle = "Rising tax exposure forecast"

// Trend classifies a company's spend direction over the trailing window
type Trend string

const (
	TrendGrowth  Trend = "GROWTH"
	TrendDecline Trend = "DECLINE"
	TrendStable  Trend = "STABLE"
)

// Forecast is the predictor's per-company result, exported for tests and
// for the metadata attached to alerts.
type Forecast struct {
	Trend          Trend
	AverageSpend   decimal.Decimal
	LastMonthSpend decimal.Decimal
	ForecastSpend  decimal.Decimal
	ForecastVAT    decimal.Decimal
	HistoricalVAT  decimal.Decimal
}

// Predictor extracts a spend trend per company from trailing monthly
// aggregates and projects next month's VAT exposure. All forecasting is
// deterministic threshold arithmetic.
type Predictor struct {
	reader document.AggregateReader
	alerts alert.Store
	cfg    config.AgentsConfig
	logger *zap.Logger
}

// NewPredictor creates the spend forecaster
func NewPredictor(reader document.AggregateReader, alerts alert.Store, cfg config.AgentsConfig, logger *zap.Logger) *Predictor {
	return &Predictor{reader: reader, alerts: alerts, cfg: cfg, logger: logger}
}

// Name returns the agent name
func (p *Predictor) Name() string { return PredictorName }

// Run forecasts tax exposure for every company with recent spending.
// Companies with too little history are skipped; a failure on one company
// is logged and counted, and the loop continues.
func (p *Predictor) Run(ctx context.Context) (Report, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, PredictorName, "run")
	defer span.End()

	runID := uuid.New().String()
	ctx, log := applogger.WithRunID(ctx, p.logger, runID)
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, runID)

	start := time.Now()
	report := Report{Agent: PredictorName}

	log.Info("Predictor run started", zap.Int("window_months", p.cfg.TrendWindowMonths))

	companies, err := p.reader.SpendingCompanies(ctx, p.cfg.TrendWindowMonths)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ObserveAgentRun(PredictorName, telemetry.ResultError, time.Since(start))
		log.Error("Predictor run failed: could not list spending companies", zap.Error(err))
		return report, fmt.Errorf("failed to list spending companies: %w", err)
	}

	for _, companyID := range companies {
		if err := p.analyzeCompany(ctx, companyID, &report); err != nil {
			report.Failed++
			log.Warn("Company forecast failed",
				zap.String("company_id", companyID.String()),
				zap.Error(err),
			)
			continue
		}
		report.Processed++
	}

	telemetry.AddAgentEntities(PredictorName, report.Processed, report.Failed)
	telemetry.ObserveAgentRun(PredictorName, telemetry.ResultSuccess, time.Since(start))
	log.Info("Predictor run completed",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.Int("alerts_created", report.Created),
		zap.Int("alerts_skipped", report.Skipped),
	)
	return report, nil
}

func (p *Predictor) analyzeCompany(ctx context.Context, companyID uuid.UUID, report *Report) error {
	history, err := p.reader.MonthlySpend(ctx, companyID, p.cfg.TrendWindowMonths)
	if err != nil {
		return err
	}
	if len(history) < p.cfg.MinHistoryMonths {
		return nil
	}

	forecast := p.forecast(history)
	if !p.shouldAlert(forecast) {
		return nil
	}

	var ratio decimal.Decimal
	if forecast.HistoricalVAT.IsPositive() {
		ratio = forecast.ForecastVAT.Div(forecast.HistoricalVAT).Round(4)
	}

	return raise(ctx, p.alerts, alert.Command{
		CompanyID: companyID,
		AgentName: PredictorName,
		Severity:  alert.SeverityWarning,
		Title:     predictorAlertTitle,
		Message: fmt.Sprintf(
			"Forecast VAT exposure of %s exceeds the historical monthly average of %s (trend: %s)",
			forecast.ForecastVAT.StringFixed(2), forecast.HistoricalVAT.StringFixed(2), forecast.Trend),
		Metadata: map[string]interface{}{
			"trend":                 string(forecast.Trend),
			"average_monthly_spend": forecast.AverageSpend.String(),
			"last_month_spend":      forecast.LastMonthSpend.String(),
			"forecast_spend":        forecast.ForecastSpend.String(),
			"forecast_vat":          forecast.ForecastVAT.String(),
			"historical_vat":        forecast.HistoricalVAT.String(),
			"vat_ratio":             ratio.String(),
			"months_analyzed":       len(history),
		},
	}, report)
}

// forecast derives the trend and next-month projection from a chronologically
// ordered spend history
func (p *Predictor) forecast(history []document.MonthlyAggregate) Forecast {
	total := decimal.Zero
	for _, month := range history {
		total = total.Add(month.TotalSpend)
	}
	average := total.Div(decimal.NewFromInt(int64(len(history))))
	last := history[len(history)-1].TotalSpend

	trend := TrendStable
	forecastSpend := last
	switch {
	case last.GreaterThan(average.Mul(decimalFromFloat(p.cfg.GrowthThreshold))):
		trend = TrendGrowth
		forecastSpend = last.Mul(decimalFromFloat(p.cfg.GrowthProjection))
	case last.LessThan(average.Mul(decimalFromFloat(p.cfg.DeclineThreshold))):
		trend = TrendDecline
		forecastSpend = last.Mul(decimalFromFloat(p.cfg.DeclineProjection))
	}

	vatRate := decimalFromFloat(p.cfg.VATRate)
	return Forecast{
		Trend:          trend,
		AverageSpend:   average,
		LastMonthSpend: last,
		ForecastSpend:  forecastSpend,
		ForecastVAT:    forecastSpend.Mul(vatRate),
		HistoricalVAT:  average.Mul(vatRate),
	}
}

func (p *Predictor) shouldAlert(f Forecast) bool {
	return f.ForecastVAT.GreaterThan(f.HistoricalVAT.Mul(decimalFromFloat(p.cfg.VATAlertRatio)))
}
