package outcome

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

const (
	triggerWindowSec = 86_400
	tp1ThresholdPct  = 40.0
	slThresholdPct   = -50.0
)

// RunTrigger evaluates every PENDING SignalTriggerEvaluation over the fixed
// 24h post-signal window, per spec.md §4.6.
func (a *Analyzer) RunTrigger(now time.Time) (int, error) {
	pending, err := a.st.IteratePendingTriggerEvaluations()
	if err != nil {
		return 0, err
	}
	evaluated := 0
	for i := range pending {
		row := pending[i]
		event, err := a.st.GetSignalEvent(row.SignalID)
		if err != nil {
			a.log.Warn("trigger: signal event lookup failed", logger.Int("signal_id", int(row.SignalID)), logger.FieldErr(err))
			continue
		}
		if err := a.evaluateTrigger(event, &row); err != nil {
			a.log.Warn("trigger: evaluation failed", logger.Int("signal_id", int(row.SignalID)), logger.FieldErr(err))
			continue
		}
		evaluated++
	}
	return evaluated, nil
}

type pricePoint struct {
	ts    int64
	price decimal.Decimal
}

func (a *Analyzer) evaluateTrigger(event *model.SignalEvent, row *model.SignalTriggerEvaluation) error {
	sinceMs := event.SignalTs
	untilMs := event.SignalTs + triggerWindowSec*1000
	snaps, err := a.st.IterateSnapshots(event.PairAddress, &sinceMs, &untilMs)
	if err != nil {
		return err
	}

	var points []pricePoint
	for _, s := range snaps {
		if s.PriceUsd != nil && s.PriceUsd.GreaterThan(decimal.Zero) {
			points = append(points, pricePoint{ts: s.SnapshotTs, price: *s.PriceUsd})
		}
	}
	if len(points) < 2 {
		return a.st.UpdateTriggerEvaluationNoData(row)
	}

	entry := event.EntryPrice
	tp1Threshold := decimal.NewFromFloat(tp1ThresholdPct)
	slThreshold := decimal.NewFromFloat(slThresholdPct)

	var tp1Ts, slHitTs *int64
	var tp1Price, slPrice *decimal.Decimal
	maxPrice, minPrice := points[0].price, points[0].price
	maxReturn, minReturn := pctReturn(entry, points[0].price), pctReturn(entry, points[0].price)

	for _, p := range points {
		if p.price.GreaterThan(maxPrice) {
			maxPrice = p.price
		}
		if p.price.LessThan(minPrice) {
			minPrice = p.price
		}
		ret := pctReturn(entry, p.price)
		if ret.GreaterThan(maxReturn) {
			maxReturn = ret
		}
		if ret.LessThan(minReturn) {
			minReturn = ret
		}

		if tp1Ts == nil && ret.GreaterThanOrEqual(tp1Threshold) {
			ts, price := p.ts, p.price
			tp1Ts, tp1Price = &ts, &price
		}
		if slHitTs == nil && ret.LessThanOrEqual(slThreshold) {
			ts, price := p.ts, p.price
			slHitTs, slPrice = &ts, &price
		}
	}

	var outcome model.TriggerOutcome
	switch {
	case tp1Ts != nil && (slHitTs == nil || *tp1Ts < *slHitTs):
		outcome = model.TriggerTP1First
	case slHitTs != nil && (tp1Ts == nil || *slHitTs < *tp1Ts):
		outcome = model.TriggerSLFirst
	default:
		outcome = model.TriggerNeither
	}

	row.Outcome = &outcome
	row.Tp1HitTs, row.Tp1Price = tp1Ts, tp1Price
	row.SlHitTs, row.SlPrice = slHitTs, slPrice
	row.MfePct, row.MaePct = &maxReturn, &minReturn
	row.MaxPrice, row.MinPrice = &maxPrice, &minPrice

	if outcome == model.TriggerTP1First {
		var subset []pricePoint
		for _, p := range points {
			if p.ts >= *tp1Ts {
				subset = append(subset, p)
			}
		}
		if len(subset) <= 1 {
			buHit := false
			postMaxPct := pctReturn(entry, *tp1Price)
			row.BuHitAfterTp1 = &buHit
			row.PostTp1MaxPct = &postMaxPct
			row.PostTp1MaxPrice = tp1Price
		} else {
			buHit := false
			postMaxPrice := subset[0].price
			for _, p := range subset {
				if p.price.LessThanOrEqual(entry) {
					buHit = true
				}
				if p.price.GreaterThan(postMaxPrice) {
					postMaxPrice = p.price
				}
			}
			postMaxPct := pctReturn(entry, postMaxPrice)
			row.BuHitAfterTp1 = &buHit
			row.PostTp1MaxPct = &postMaxPct
			row.PostTp1MaxPrice = &postMaxPrice
		}
	}

	return a.st.UpdateTriggerEvaluationDone(row)
}
