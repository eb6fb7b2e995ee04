// Package credit implements the credit ledger operations consumed by the
// broader application: consuming credits against tool usage, transferring
// credits between accounts, and granting top-ups.
package credit

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tributa/backend/internal/domain/credit"
	"github.com/tributa/backend/internal/domain/shared"
	"github.com/tributa/backend/internal/infrastructure/persistence"
	"github.com/tributa/backend/internal/infrastructure/telemetry"
)

// LedgerService mutates credit accounts. Every mutation runs inside one
// database transaction holding a row-level lock on the affected account(s)
// for the full read-check-write span, so concurrent callers against the same
// account serialize and no overdraft is possible. Each mutation appends an
// immutable transaction record alongside the balance change.
type LedgerService struct {
	db          *persistence.Database
	accountRepo *persistence.GormCreditAccountRepository
	txRepo      *persistence.GormCreditTransactionRepository
	auditRepo   *persistence.GormCreditAuditRepository
	logger      *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(db *persistence.Database, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		db:          db,
		accountRepo: persistence.NewGormCreditAccountRepository(db.DB),
		txRepo:      persistence.NewGormCreditTransactionRepository(db.DB),
		auditRepo:   persistence.NewGormCreditAuditRepository(db.DB),
		logger:      logger,
	}
}

// TransferResult reports both balances after a completed transfer
type TransferResult struct {
	FromBalance decimal.Decimal `json:"from_balance"`
	ToBalance   decimal.Decimal `json:"to_balance"`
}

// ConsumeCredit debits an account for one tool invocation and returns the
// remaining balance. Fails with shared.ErrInsufficientCredits when the
// balance cannot cover the amount, leaving the account unchanged.
func (s *LedgerService) ConsumeCredit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, tool string) (decimal.Decimal, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_ledger", "consume")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, accountID.String(),
		telemetry.SpanAttrAmount, amount.String(),
	)

	start := time.Now()

	if !amount.IsPositive() {
		telemetry.RecordError(span, shared.ErrInvalidAmount)
		telemetry.ObserveLedgerOperation("consume", telemetry.ResultError, time.Since(start))
		return decimal.Zero, shared.ErrInvalidAmount
	}

	var remaining decimal.Decimal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.WithTx(tx).FindByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		if err := account.Debit(amount); err != nil {
			return err
		}

		if err := s.accountRepo.WithTx(tx).Save(ctx, account); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		record, err := credit.NewTransaction(accountID, amount, credit.TransactionTypeConsume,
			fmt.Sprintf("Credit consumption for %s", tool))
		if err != nil {
			return err
		}
		if err := s.txRepo.WithTx(tx).Append(ctx, record); err != nil {
			return fmt.Errorf("failed to append transaction: %w", err)
		}

		remaining = account.Balance
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ObserveLedgerOperation("consume", telemetry.ResultError, time.Since(start))
		return decimal.Zero, err
	}

	telemetry.ObserveLedgerOperation("consume", telemetry.ResultSuccess, time.Since(start))
	s.logger.Info("Credits consumed",
		zap.String("account_id", accountID.String()),
		zap.String("amount", amount.String()),
		zap.String("tool", tool),
		zap.String("remaining", remaining.String()),
	)
	return remaining, nil
}

// TransferCredits moves credits between two accounts as one all-or-nothing
// unit: debit source, credit destination, one transaction record per side,
// one audit entry. Both rows stay locked until commit; rows are locked in
// deterministic id order so two opposing transfers cannot deadlock.
func (s *LedgerService) TransferCredits(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal) (TransferResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_ledger", "transfer")
	defer span.End()
	telemetry.SetAttributes(span,
		"from_account_id", fromID.String(),
		"to_account_id", toID.String(),
		telemetry.SpanAttrAmount, amount.String(),
	)

	start := time.Now()

	if !amount.IsPositive() {
		telemetry.RecordError(span, shared.ErrInvalidAmount)
		telemetry.ObserveLedgerOperation("transfer", telemetry.ResultError, time.Since(start))
		return TransferResult{}, shared.ErrInvalidAmount
	}
	if fromID == toID {
		telemetry.RecordError(span, shared.ErrInvalidInput)
		telemetry.ObserveLedgerOperation("transfer", telemetry.ResultError, time.Since(start))
		return TransferResult{}, shared.ErrInvalidInput
	}

	var result TransferResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		accounts := s.accountRepo.WithTx(tx)

		from, to, err := lockPair(ctx, accounts, fromID, toID)
		if err != nil {
			return err
		}

		if err := from.Debit(amount); err != nil {
			return err
		}
		if err := to.Credit(amount); err != nil {
			return err
		}

		if err := accounts.Save(ctx, from); err != nil {
			return fmt.Errorf("failed to save source account: %w", err)
		}
		if err := accounts.Save(ctx, to); err != nil {
			return fmt.Errorf("failed to save destination account: %w", err)
		}

		out, err := credit.NewTransaction(fromID, amount, credit.TransactionTypeTransferOut,
			fmt.Sprintf("Transfer to account %s", toID))
		if err != nil {
			return err
		}
		in, err := credit.NewTransaction(toID, amount, credit.TransactionTypeTransferIn,
			fmt.Sprintf("Transfer from account %s", fromID))
		if err != nil {
			return err
		}
		ledger := s.txRepo.WithTx(tx)
		if err := ledger.Append(ctx, out); err != nil {
			return fmt.Errorf("failed to append outgoing transaction: %w", err)
		}
		if err := ledger.Append(ctx, in); err != nil {
			return fmt.Errorf("failed to append incoming transaction: %w", err)
		}

		audit := &credit.AuditEntry{
			BaseEntity:    shared.NewBaseEntity(),
			Action:        "credit_transfer",
			AccountID:     fromID,
			CounterpartID: &toID,
			Amount:        amount,
			Detail:        fmt.Sprintf("Transferred %s credits to account %s", amount, toID),
		}
		if err := s.auditRepo.WithTx(tx).Append(ctx, audit); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		result = TransferResult{FromBalance: from.Balance, ToBalance: to.Balance}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ObserveLedgerOperation("transfer", telemetry.ResultError, time.Since(start))
		return TransferResult{}, err
	}

	telemetry.ObserveLedgerOperation("transfer", telemetry.ResultSuccess, time.Since(start))
	s.logger.Info("Credits transferred",
		zap.String("from_account_id", fromID.String()),
		zap.String("to_account_id", toID.String()),
		zap.String("amount", amount.String()),
	)
	return result, nil
}

// GrantCredits adds credits to an account (plan upgrade or manual top-up)
// and returns the new balance.
func (s *LedgerService) GrantCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_ledger", "grant")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, accountID.String(),
		telemetry.SpanAttrAmount, amount.String(),
	)

	start := time.Now()

	if !amount.IsPositive() {
		telemetry.RecordError(span, shared.ErrInvalidAmount)
		telemetry.ObserveLedgerOperation("grant", telemetry.ResultError, time.Since(start))
		return decimal.Zero, shared.ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.WithTx(tx).FindByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		if err := account.Credit(amount); err != nil {
			return err
		}
		if err := s.accountRepo.WithTx(tx).Save(ctx, account); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		record, err := credit.NewTransaction(accountID, amount, credit.TransactionTypeUpgrade, reason)
		if err != nil {
			return err
		}
		if err := s.txRepo.WithTx(tx).Append(ctx, record); err != nil {
			return fmt.Errorf("failed to append transaction: %w", err)
		}

		balance = account.Balance
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ObserveLedgerOperation("grant", telemetry.ResultError, time.Since(start))
		return decimal.Zero, err
	}

	telemetry.ObserveLedgerOperation("grant", telemetry.ResultSuccess, time.Since(start))
	s.logger.Info("Credits granted",
		zap.String("account_id", accountID.String()),
		zap.String("amount", amount.String()),
		zap.String("reason", reason),
	)
	return balance, nil
}

// History returns an account's most recent ledger entries, newest first
func (s *LedgerService) History(ctx context.Context, accountID uuid.UUID, limit int) ([]credit.Transaction, error) {
	return s.txRepo.History(ctx, accountID, limit)
}

// lockPair locks both accounts of a transfer in deterministic id order. The
// returned accounts come back in (from, to) order regardless of which row was
// locked first.
func lockPair(ctx context.Context, accounts *persistence.GormCreditAccountRepository, fromID, toID uuid.UUID) (*credit.Account, *credit.Account, error) {
	firstID, secondID := fromID, toID
	if bytes.Compare(toID[:], fromID[:]) < 0 {
		firstID, secondID = toID, fromID
	}

	first, err := accounts.FindByIDForUpdate(ctx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := accounts.FindByIDForUpdate(ctx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if first.ID == fromID {
		return first, second, nil
	}
	return second, first, nil
}
