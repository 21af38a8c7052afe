package screener

import (
	"github.com/shopspring/decimal"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

// findValidATH implements spec.md §4.5 step 4: locate a peak price that both
// exceeds the current price and is corroborated by nearby trading activity.
//
// Returns (athPrice, valid, source, metrics, bootstrapInstead, err).
// bootstrapInstead signals that the raw candidate failed only for
// insufficient snapshot count in its activity window — the caller should
// fall back to the Bootstrap path rather than REJECT (step 4.e).
func (sc *Screener) findValidATH(pair model.Pair, currentPrice decimal.Decimal) (decimal.Decimal, bool, string, map[string]any, bool, error) {
	var sinceMs *int64
	if pair.PairCreatedAtMs != nil && *pair.PairCreatedAtMs > 0 {
		sinceMs = pair.PairCreatedAtMs
	}

	raw, err := sc.st.FetchAthPoint(pair.PairAddress, sinceMs)
	if err != nil {
		return decimal.Decimal{}, false, "", nil, false, err
	}
	if !raw.Found {
		return decimal.Decimal{}, false, "", nil, false, nil
	}

	// 4.b: raw ATH coincides exactly with the current observation -> no drawdown.
	if raw.AthTs == raw.CurrentTs && raw.AthPrice.Equal(raw.CurrentPrice) {
		return decimal.Decimal{}, false, "", nil, false, nil
	}

	// 4.c: validate the raw candidate's activity window.
	rawMetrics, rawValid, rawInsufficient, err := sc.validateActivity(pair.PairAddress, raw.AthTs)
	if err != nil {
		return decimal.Decimal{}, false, "", nil, false, err
	}
	if rawValid {
		return raw.AthPrice, true, "raw", rawMetrics, false, nil
	}

	// 4.d: walk fallback candidates, skipping the first (the raw one already tried).
	candidates, err := sc.st.FetchAthCandidates(pair.PairAddress, sinceMs, athFallbackMaxAttempts+1)
	if err != nil {
		return decimal.Decimal{}, false, "", nil, false, err
	}
	if len(candidates) > 1 {
		candidates = candidates[1:]
	} else {
		candidates = nil
	}
	for _, cand := range candidates {
		if cand.PriceUsd == nil || !cand.PriceUsd.GreaterThan(currentPrice) {
			continue
		}
		metrics, valid, _, err := sc.validateActivity(pair.PairAddress, cand.SnapshotTs)
		if err != nil {
			return decimal.Decimal{}, false, "", nil, false, err
		}
		if valid {
			return *cand.PriceUsd, true, "fallback", metrics, false, nil
		}
	}

	// 4.e: nothing validated; if the raw candidate's only defect was
	// insufficient snapshot count, this is a Bootstrap case, not a REJECT.
	if rawInsufficient {
		return decimal.Decimal{}, false, "", rawMetrics, true, nil
	}
	return decimal.Decimal{}, false, "", rawMetrics, false, nil
}

// validateActivity checks the ±150s window around ts per spec.md §4.5.4.c.
// Returns (metrics, valid, insufficientSnapshotsOnly, err).
func (sc *Screener) validateActivity(pairAddress string, ts int64) (map[string]any, bool, bool, error) {
	window, err := sc.st.FetchActivityWindow(pairAddress, ts, athValidateWindowSec)
	if err != nil {
		return nil, false, false, err
	}
	metrics := map[string]any{"snapshots_count": window.SnapshotsCount}
	if window.TxnsSum != nil {
		metrics["txns_sum"] = *window.TxnsSum
	}
	if window.VolumeSum != nil {
		metrics["volume_sum"] = *window.VolumeSum
	}

	enoughSnapshots := window.SnapshotsCount >= athMinSnapshotsInWindow
	txnsOK := window.TxnsSum == nil || *window.TxnsSum >= athMinTxnsInWindow
	volumeOK := window.VolumeSum == nil || *window.VolumeSum >= 0

	valid := enoughSnapshots && txnsOK && volumeOK
	insufficientOnly := !enoughSnapshots && txnsOK && volumeOK
	return metrics, valid, insufficientOnly, nil
}
