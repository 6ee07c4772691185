package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/lending"
)

// InterestPosting turns closed accrual periods into interest_accrual transactions.
type InterestPosting struct {
	processor *Processor
	logger    zerolog.Logger
}

// NewInterestPosting creates a new InterestPosting.
func NewInterestPosting(processor *Processor, logger zerolog.Logger) *InterestPosting {
	return &InterestPosting{
		processor: processor,
		logger:    logger.With().Str("component", "interest_posting").Logger(),
	}
}

// PostAccrued submits the posting for acc's closed period and advances acc once the
// transaction completes. A period that rounds to zero is closed without a submission and
// its residual carried forward. The proposal key makes a repeated call a replay.
func (ip *InterestPosting) PostAccrued(ctx context.Context, acc *lending.Accrual, actor string) (*domain.TransactionResult, error) {
	proposal, err := acc.ProposePosting()
	if err != nil {
		return nil, err
	}

	if proposal.Empty() {
		if err := acc.MarkPosted(proposal); err != nil {
			return nil, err
		}
		ip.logger.Debug().
			Str("loan_id", proposal.LoanID).
			Str("residual", proposal.Residual.String()).
			Msg("accrual period rounded to zero, carried forward")
		return nil, nil
	}

	res, err := ip.processor.Submit(ctx, SubmitRequest{
		IdempotencyKey: proposal.IdempotencyKey,
		Type:           domain.TransactionTypeInterestAccrual,
		Actor:          actor,
		Description: fmt.Sprintf("interest %s to %s for loan %s",
			proposal.PeriodStart.Format("2006-01-02"), proposal.PeriodEnd.Format("2006-01-02"), proposal.LoanID),
		Lines: proposal.Lines,
		Metadata: map[string]any{
			"loan_id":      proposal.LoanID,
			"period_start": proposal.PeriodStart.Format("2006-01-02"),
			"period_end":   proposal.PeriodEnd.Format("2006-01-02"),
			"days":         proposal.Days,
			"residual":     proposal.Residual.StringFixed(),
		},
	})
	if err != nil {
		return nil, err
	}

	if res.Status != domain.StatusCompleted {
		return res, nil
	}

	if err := acc.MarkPosted(proposal); err != nil {
		return nil, err
	}

	ip.logger.Info().
		Str("loan_id", proposal.LoanID).
		Str("amount", proposal.Amount.String()).
		Str("transaction_id", res.ID).
		Msg("interest posted")

	return res, nil
}

// AccruePeriodInput runs one accrual period over a balance that stays flat for the period.
type AccruePeriodInput struct {
	Config  lending.AccrualConfig
	Balance domain.Money
	Actor   string
}

// AccrualOutcome describes the period an accrual run closed. Result is nil when the
// period rounded to zero.
type AccrualOutcome struct {
	LoanID      string                    `json:"loan_id"`
	PeriodStart time.Time                 `json:"period_start"`
	PeriodEnd   time.Time                 `json:"period_end"`
	Days        int                       `json:"days"`
	Amount      domain.Money              `json:"amount"`
	Residual    string                    `json:"residual"` // unquantized carry into the next period
	Result      *domain.TransactionResult `json:"result,omitempty"`
}

// maxPeriodDays bounds the daily loop; a monthly cycle never exceeds 31 days.
const maxPeriodDays = 31

// AccruePeriod accrues daily interest from in.Config.StartDate up to the next cycle
// boundary and posts it. The period end is part of the idempotency key, so running the
// same period again replays the stored result.
func (ip *InterestPosting) AccruePeriod(ctx context.Context, in AccruePeriodInput) (*AccrualOutcome, error) {
	acc, err := lending.NewAccrual(in.Config)
	if err != nil {
		return nil, err
	}

	day := in.Config.StartDate
	for i := 0; i < maxPeriodDays && !acc.AtBoundary(); i++ {
		if _, err := acc.AccrueDay(domain.LoanStateActive, day, in.Balance); err != nil {
			return nil, err
		}
		day = day.AddDate(0, 0, 1)
	}

	proposal, err := acc.ProposePosting()
	if err != nil {
		return nil, err
	}

	res, err := ip.PostAccrued(ctx, acc, in.Actor)
	if err != nil {
		return nil, err
	}

	return &AccrualOutcome{
		LoanID:      proposal.LoanID,
		PeriodStart: proposal.PeriodStart,
		PeriodEnd:   proposal.PeriodEnd,
		Days:        proposal.Days,
		Amount:      proposal.Amount,
		Residual:    proposal.Residual.Amount().String(),
		Result:      res,
	}, nil
}
