// Package outcome is the Outcome Analyzer (C6): two independent passes over
// PENDING rows that classify a signal's post-hoc profitability, one
// horizon-based and one trigger-based (TP1/SL/break-even).
package outcome

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
	"github.com/uharev-ux/dex-dump-screener/internal/store"
	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

// Analyzer runs both PENDING-row passes against a Store.
type Analyzer struct {
	st  *store.Store
	log *logger.Logger
}

func New(st *store.Store) *Analyzer {
	return &Analyzer{st: st, log: logger.Default().Named("outcome")}
}

// RunHorizon evaluates every PENDING SignalEvaluation whose horizon has
// elapsed by now, per spec.md §4.6. Returns the number of rows evaluated.
func (a *Analyzer) RunHorizon(now time.Time) (int, error) {
	pending, err := a.st.IteratePendingSignalEvaluations()
	if err != nil {
		return 0, err
	}
	nowMs := now.UnixMilli()
	evaluated := 0
	for i := range pending {
		row := pending[i]
		event, err := a.st.GetSignalEvent(row.SignalID)
		if err != nil {
			a.log.Warn("horizon: signal event lookup failed", logger.Int("signal_id", int(row.SignalID)), logger.FieldErr(err))
			continue
		}
		horizonEndMs := event.SignalTs + row.HorizonSec*1000
		if nowMs < horizonEndMs {
			continue
		}
		if err := a.evaluateHorizon(event, &row); err != nil {
			a.log.Warn("horizon: evaluation failed", logger.Int("signal_id", int(row.SignalID)), logger.FieldErr(err))
			continue
		}
		evaluated++
	}
	return evaluated, nil
}

func (a *Analyzer) evaluateHorizon(event *model.SignalEvent, row *model.SignalEvaluation) error {
	sinceMs := event.SignalTs
	untilMs := event.SignalTs + row.HorizonSec*1000
	snaps, err := a.st.IterateSnapshots(event.PairAddress, &sinceMs, &untilMs)
	if err != nil {
		return err
	}
	prices := positivePrices(snaps)
	if len(prices) == 0 {
		return a.st.UpdateSignalEvaluationNoData(row)
	}

	priceEnd := prices[len(prices)-1]
	maxPrice, minPrice := prices[0], prices[0]
	for _, p := range prices {
		if p.GreaterThan(maxPrice) {
			maxPrice = p
		}
		if p.LessThan(minPrice) {
			minPrice = p
		}
	}

	entry := event.EntryPrice
	row.PriceEnd = &priceEnd
	row.MaxPrice = &maxPrice
	row.MinPrice = &minPrice
	returnEnd := pctReturn(entry, priceEnd)
	returnMax := pctReturn(entry, maxPrice)
	returnMin := pctReturn(entry, minPrice)
	row.ReturnEndPct = &returnEnd
	row.MaxReturnPct = &returnMax
	row.MinReturnPct = &returnMin

	return a.st.UpdateSignalEvaluationDone(row)
}

func positivePrices(snaps []model.Snapshot) []decimal.Decimal {
	var out []decimal.Decimal
	for _, s := range snaps {
		if s.PriceUsd != nil && s.PriceUsd.GreaterThan(decimal.Zero) {
			out = append(out, *s.PriceUsd)
		}
	}
	return out
}

func pctReturn(entry, price decimal.Decimal) decimal.Decimal {
	if entry.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return price.Sub(entry).Div(entry).Mul(decimal.NewFromInt(100))
}
