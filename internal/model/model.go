// Package model holds the GORM-tagged row types persisted by internal/store.
//
// Optional numeric fields use pointers so that "the provider did not report
// this" is distinguishable from a reported zero, per the normalization
// contract in internal/normalize. String fields are plain strings: a value
// the provider did not report is stored as the empty string, not as null.
package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ChainSolana is the only chain identifier this system ever writes.
const ChainSolana = "solana"

// Token mirrors an on-chain mint referenced by one or more pairs.
type Token struct {
	Address     string `gorm:"column:address;primaryKey" json:"address"`
	ChainID     string `gorm:"column:chain_id;not null;default:solana" json:"chain_id"`
	Symbol      string `gorm:"column:symbol" json:"symbol"`
	DisplayName string `gorm:"column:display_name" json:"display_name"`
}

func (Token) TableName() string { return "tokens" }

// Pair is the latest observed state of a base/quote pool on a DEX.
type Pair struct {
	PairAddress      string           `gorm:"column:pair_address;primaryKey" json:"pair_address"`
	ChainID          string           `gorm:"column:chain_id" json:"chain_id"`
	DexID            string           `gorm:"column:dex_id" json:"dex_id"`
	URL              string           `gorm:"column:url" json:"url"`
	BaseTokenAddress string           `gorm:"column:base_token_address;index" json:"base_token_address"`
	QuoteTokenAddress string          `gorm:"column:quote_token_address;index" json:"quote_token_address"`
	PriceUsd         *decimal.Decimal `gorm:"column:price_usd;type:numeric" json:"price_usd"`
	PriceNative      *decimal.Decimal `gorm:"column:price_native;type:numeric" json:"price_native"`
	LiquidityUsd     *decimal.Decimal `gorm:"column:liquidity_usd;type:numeric" json:"liquidity_usd"`
	LiquidityBase    *decimal.Decimal `gorm:"column:liquidity_base;type:numeric" json:"liquidity_base"`
	LiquidityQuote   *decimal.Decimal `gorm:"column:liquidity_quote;type:numeric" json:"liquidity_quote"`
	VolumeM5         *decimal.Decimal `gorm:"column:volume_m5;type:numeric" json:"volume_m5"`
	VolumeH1         *decimal.Decimal `gorm:"column:volume_h1;type:numeric" json:"volume_h1"`
	VolumeH6         *decimal.Decimal `gorm:"column:volume_h6;type:numeric" json:"volume_h6"`
	VolumeH24        *decimal.Decimal `gorm:"column:volume_h24;type:numeric" json:"volume_h24"`
	PriceChangeM5    *decimal.Decimal `gorm:"column:price_change_m5;type:numeric" json:"price_change_m5"`
	PriceChangeH1    *decimal.Decimal `gorm:"column:price_change_h1;type:numeric" json:"price_change_h1"`
	PriceChangeH6    *decimal.Decimal `gorm:"column:price_change_h6;type:numeric" json:"price_change_h6"`
	PriceChangeH24   *decimal.Decimal `gorm:"column:price_change_h24;type:numeric" json:"price_change_h24"`
	BuysM5           *int64           `gorm:"column:buys_m5" json:"buys_m5"`
	SellsM5          *int64           `gorm:"column:sells_m5" json:"sells_m5"`
	BuysH1           *int64           `gorm:"column:buys_h1" json:"buys_h1"`
	SellsH1          *int64           `gorm:"column:sells_h1" json:"sells_h1"`
	BuysH6           *int64           `gorm:"column:buys_h6" json:"buys_h6"`
	SellsH6          *int64           `gorm:"column:sells_h6" json:"sells_h6"`
	BuysH24          *int64           `gorm:"column:buys_h24" json:"buys_h24"`
	SellsH24         *int64           `gorm:"column:sells_h24" json:"sells_h24"`
	Fdv              *decimal.Decimal `gorm:"column:fdv;type:numeric" json:"fdv"`
	MarketCap        *decimal.Decimal `gorm:"column:market_cap;type:numeric" json:"market_cap"`
	PairCreatedAtMs  *int64           `gorm:"column:pair_created_at_ms;index" json:"pair_created_at_ms"`
	SnapshotTs       int64            `gorm:"column:snapshot_ts" json:"snapshot_ts"`
}

func (Pair) TableName() string { return "pairs" }

// TxnsH24 sums buys and sells over the h24 window, treating a missing side as zero.
func (p *Pair) TxnsH24() int64 {
	var n int64
	if p.BuysH24 != nil {
		n += *p.BuysH24
	}
	if p.SellsH24 != nil {
		n += *p.SellsH24
	}
	return n
}

// Snapshot is one immutable, append-only observation of a Pair.
type Snapshot struct {
	ID                uint64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PairAddress       string           `gorm:"column:pair_address;not null;index:idx_snapshots_pair_ts;index:idx_snapshots_pair" json:"pair_address"`
	ChainID           string           `gorm:"column:chain_id" json:"chain_id"`
	DexID             string           `gorm:"column:dex_id" json:"dex_id"`
	URL               string           `gorm:"column:url" json:"url"`
	BaseTokenAddress  string           `gorm:"column:base_token_address" json:"base_token_address"`
	QuoteTokenAddress string           `gorm:"column:quote_token_address" json:"quote_token_address"`
	PriceUsd          *decimal.Decimal `gorm:"column:price_usd;type:numeric" json:"price_usd"`
	PriceNative       *decimal.Decimal `gorm:"column:price_native;type:numeric" json:"price_native"`
	LiquidityUsd      *decimal.Decimal `gorm:"column:liquidity_usd;type:numeric" json:"liquidity_usd"`
	LiquidityBase     *decimal.Decimal `gorm:"column:liquidity_base;type:numeric" json:"liquidity_base"`
	LiquidityQuote    *decimal.Decimal `gorm:"column:liquidity_quote;type:numeric" json:"liquidity_quote"`
	VolumeM5          *decimal.Decimal `gorm:"column:volume_m5;type:numeric" json:"volume_m5"`
	VolumeH1          *decimal.Decimal `gorm:"column:volume_h1;type:numeric" json:"volume_h1"`
	VolumeH6          *decimal.Decimal `gorm:"column:volume_h6;type:numeric" json:"volume_h6"`
	VolumeH24         *decimal.Decimal `gorm:"column:volume_h24;type:numeric" json:"volume_h24"`
	PriceChangeM5     *decimal.Decimal `gorm:"column:price_change_m5;type:numeric" json:"price_change_m5"`
	PriceChangeH1     *decimal.Decimal `gorm:"column:price_change_h1;type:numeric" json:"price_change_h1"`
	PriceChangeH6     *decimal.Decimal `gorm:"column:price_change_h6;type:numeric" json:"price_change_h6"`
	PriceChangeH24    *decimal.Decimal `gorm:"column:price_change_h24;type:numeric" json:"price_change_h24"`
	BuysM5            *int64           `gorm:"column:buys_m5" json:"buys_m5"`
	SellsM5           *int64           `gorm:"column:sells_m5" json:"sells_m5"`
	BuysH1            *int64           `gorm:"column:buys_h1" json:"buys_h1"`
	SellsH1           *int64           `gorm:"column:sells_h1" json:"sells_h1"`
	BuysH6            *int64           `gorm:"column:buys_h6" json:"buys_h6"`
	SellsH6           *int64           `gorm:"column:sells_h6" json:"sells_h6"`
	BuysH24           *int64           `gorm:"column:buys_h24" json:"buys_h24"`
	SellsH24          *int64           `gorm:"column:sells_h24" json:"sells_h24"`
	Fdv               *decimal.Decimal `gorm:"column:fdv;type:numeric" json:"fdv"`
	MarketCap         *decimal.Decimal `gorm:"column:market_cap;type:numeric" json:"market_cap"`
	PairCreatedAtMs   *int64           `gorm:"column:pair_created_at_ms" json:"pair_created_at_ms"`
	SnapshotTs        int64            `gorm:"column:snapshot_ts;not null" json:"snapshot_ts"`
}

func (Snapshot) TableName() string { return "snapshots" }

// DumpState is the sum type carried by DumpWatchlistEntry.
type DumpState string

const (
	DumpStateDumping   DumpState = "DUMPING"
	DumpStateBottoming DumpState = "BOTTOMING"
	DumpStateSignal    DumpState = "SIGNAL"
)

// DumpWatchlistEntry is the per-pair carrier for the dump/reversal state machine.
type DumpWatchlistEntry struct {
	PairAddress string           `gorm:"column:pair_address;primaryKey" json:"pair_address"`
	AddedAtMs   int64            `gorm:"column:added_at_ms" json:"added_at_ms"`
	UpdatedAtMs int64            `gorm:"column:updated_at_ms;index" json:"updated_at_ms"`
	State       DumpState        `gorm:"column:state;index" json:"state"`
	PeakPrice   decimal.Decimal  `gorm:"column:peak_price;type:numeric" json:"peak_price"`
	PeakTs      int64            `gorm:"column:peak_ts" json:"peak_ts"`
	LowPrice    decimal.Decimal  `gorm:"column:low_price;type:numeric" json:"low_price"`
	LowTs       int64            `gorm:"column:low_ts" json:"low_ts"`
	LastPrice   decimal.Decimal  `gorm:"column:last_price;type:numeric" json:"last_price"`
	LastTs      int64            `gorm:"column:last_ts" json:"last_ts"`
	DropPct     decimal.Decimal  `gorm:"column:drop_pct;type:numeric" json:"drop_pct"`
	VolumeM5    *decimal.Decimal `gorm:"column:volume_m5;type:numeric" json:"volume_m5"`
	BuysM5      *int64           `gorm:"column:buys_m5" json:"buys_m5"`
	SellsM5     *int64           `gorm:"column:sells_m5" json:"sells_m5"`
	SignalTs    *int64           `gorm:"column:signal_ts" json:"signal_ts"`
	SignalPrice *decimal.Decimal `gorm:"column:signal_price;type:numeric" json:"signal_price"`
}

func (DumpWatchlistEntry) TableName() string { return "dump_watchlist" }

// Decision is the sum type recorded by the ATH drawdown screener.
type Decision string

const (
	DecisionReject             Decision = "REJECT"
	DecisionWatchlistBootstrap Decision = "WATCHLIST_BOOTSTRAP"
	DecisionWatchlistL1        Decision = "WATCHLIST_L1"
	DecisionWatchlistL2        Decision = "WATCHLIST_L2"
	DecisionWatchlistL3        Decision = "WATCHLIST_L3"
	DecisionSignal             Decision = "SIGNAL"
)

// StrategyDecision is an append-only audit row, one per screener classification.
type StrategyDecision struct {
	ID            uint64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PairAddress   string           `gorm:"column:pair_address;index" json:"pair_address"`
	DecidedAtMs   int64            `gorm:"column:decided_at;index:idx_strategy_decisions_decided_at" json:"decided_at"`
	Decision      Decision         `gorm:"column:decision" json:"decision"`
	CurrentPrice  decimal.Decimal  `gorm:"column:current_price;type:numeric" json:"current_price"`
	AthPrice      *decimal.Decimal `gorm:"column:ath_price;type:numeric" json:"ath_price"`
	DropFromAth   *decimal.Decimal `gorm:"column:drop_from_ath;type:numeric" json:"drop_from_ath"`
	Reasons       datatypes.JSON   `gorm:"column:reasons" json:"reasons"`
}

func (StrategyDecision) TableName() string { return "strategy_decisions" }

// StrategyLatest mirrors the most recent StrategyDecision per pair.
type StrategyLatest struct {
	PairAddress  string           `gorm:"column:pair_address;primaryKey" json:"pair_address"`
	DecidedAtMs  int64            `gorm:"column:decided_at" json:"decided_at"`
	Decision     Decision         `gorm:"column:decision" json:"decision"`
	CurrentPrice decimal.Decimal  `gorm:"column:current_price;type:numeric" json:"current_price"`
	AthPrice     *decimal.Decimal `gorm:"column:ath_price;type:numeric" json:"ath_price"`
	DropFromAth  *decimal.Decimal `gorm:"column:drop_from_ath;type:numeric" json:"drop_from_ath"`
	Reasons      datatypes.JSON   `gorm:"column:reasons" json:"reasons"`
}

func (StrategyLatest) TableName() string { return "strategy_latest" }

// SignalCooldown gates repeated SIGNAL emission for a pair.
type SignalCooldown struct {
	PairAddress    string `gorm:"column:pair_address;primaryKey" json:"pair_address"`
	LastSignalAtMs int64  `gorm:"column:last_signal_at_ms" json:"last_signal_at_ms"`
}

func (SignalCooldown) TableName() string { return "signal_cooldowns" }

// SignalEvent is emitted the moment a SIGNAL classification fires.
type SignalEvent struct {
	ID          uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PairAddress string          `gorm:"column:pair_address;index" json:"pair_address"`
	SignalTs    int64           `gorm:"column:signal_ts;index" json:"signal_ts"`
	EntryPrice  decimal.Decimal `gorm:"column:entry_price;type:numeric" json:"entry_price"`
	AthPrice    decimal.Decimal `gorm:"column:ath_price;type:numeric" json:"ath_price"`
	DropFromAth decimal.Decimal `gorm:"column:drop_from_ath;type:numeric" json:"drop_from_ath"`
	Score       decimal.Decimal `gorm:"column:score;type:numeric" json:"score"`
	Features    datatypes.JSON  `gorm:"column:features" json:"features"`
}

func (SignalEvent) TableName() string { return "signal_events" }

// EvalStatus is shared by SignalEvaluation and SignalTriggerEvaluation.
type EvalStatus string

const (
	EvalPending EvalStatus = "PENDING"
	EvalDone    EvalStatus = "DONE"
	EvalNoData  EvalStatus = "NO_DATA"
)

// SignalEvaluation is one horizon-based outcome row per (signal, horizon).
type SignalEvaluation struct {
	ID             uint64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SignalID       uint64           `gorm:"column:signal_id;index" json:"signal_id"`
	HorizonSec     int64            `gorm:"column:horizon_sec" json:"horizon_sec"`
	Status         EvalStatus       `gorm:"column:status;index" json:"status"`
	PriceEnd       *decimal.Decimal `gorm:"column:price_end;type:numeric" json:"price_end"`
	MaxPrice       *decimal.Decimal `gorm:"column:max_price;type:numeric" json:"max_price"`
	MinPrice       *decimal.Decimal `gorm:"column:min_price;type:numeric" json:"min_price"`
	ReturnEndPct   *decimal.Decimal `gorm:"column:return_end_pct;type:numeric" json:"return_end_pct"`
	MaxReturnPct   *decimal.Decimal `gorm:"column:max_return_pct;type:numeric" json:"max_return_pct"`
	MinReturnPct   *decimal.Decimal `gorm:"column:min_return_pct;type:numeric" json:"min_return_pct"`
	EvaluatedAtMs  *int64           `gorm:"column:evaluated_at" json:"evaluated_at"`
}

func (SignalEvaluation) TableName() string { return "signal_evaluations" }

// TriggerOutcome is the sum type recorded once a SignalTriggerEvaluation completes.
type TriggerOutcome string

const (
	TriggerTP1First TriggerOutcome = "TP1_FIRST"
	TriggerSLFirst  TriggerOutcome = "SL_FIRST"
	TriggerNeither  TriggerOutcome = "NEITHER"
)

// SignalTriggerEvaluation is at most one trigger-based outcome row per signal.
type SignalTriggerEvaluation struct {
	ID               uint64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SignalID         uint64           `gorm:"column:signal_id;uniqueIndex" json:"signal_id"`
	Status           EvalStatus       `gorm:"column:status;index" json:"status"`
	Outcome          *TriggerOutcome  `gorm:"column:outcome" json:"outcome"`
	Tp1HitTs         *int64           `gorm:"column:tp1_hit_ts" json:"tp1_hit_ts"`
	SlHitTs          *int64           `gorm:"column:sl_hit_ts" json:"sl_hit_ts"`
	Tp1Price         *decimal.Decimal `gorm:"column:tp1_price;type:numeric" json:"tp1_price"`
	SlPrice          *decimal.Decimal `gorm:"column:sl_price;type:numeric" json:"sl_price"`
	MfePct           *decimal.Decimal `gorm:"column:mfe_pct;type:numeric" json:"mfe_pct"`
	MaePct           *decimal.Decimal `gorm:"column:mae_pct;type:numeric" json:"mae_pct"`
	MaxPrice         *decimal.Decimal `gorm:"column:max_price;type:numeric" json:"max_price"`
	MinPrice         *decimal.Decimal `gorm:"column:min_price;type:numeric" json:"min_price"`
	BuHitAfterTp1    *bool            `gorm:"column:bu_hit_after_tp1" json:"bu_hit_after_tp1"`
	PostTp1MaxPct    *decimal.Decimal `gorm:"column:post_tp1_max_pct;type:numeric" json:"post_tp1_max_pct"`
	PostTp1MaxPrice  *decimal.Decimal `gorm:"column:post_tp1_max_price;type:numeric" json:"post_tp1_max_price"`
}

func (SignalTriggerEvaluation) TableName() string { return "signal_trigger_evaluations" }

// AppStatus is a singleton heartbeat row; PK is always 1.
type AppStatus struct {
	ID                    uint   `gorm:"column:id;primaryKey" json:"id"`
	UpdatedAtMs           int64  `gorm:"column:updated_at_ms" json:"updated_at_ms"`
	LastCycleStartedAtMs  *int64 `gorm:"column:last_cycle_started_at_ms" json:"last_cycle_started_at_ms"`
	LastCycleFinishedAtMs *int64 `gorm:"column:last_cycle_finished_at_ms" json:"last_cycle_finished_at_ms"`
	LastError             string `gorm:"column:last_error" json:"last_error"`
	LastErrorAtMs         *int64 `gorm:"column:last_error_at_ms" json:"last_error_at_ms"`
	Counters              datatypes.JSON `gorm:"column:counters" json:"counters"`
}

func (AppStatus) TableName() string { return "app_status" }

// AppStatusSingletonID is the fixed primary key of the one AppStatus row.
const AppStatusSingletonID = 1

// AllTables lists every model migrated by the store, leaves first so foreign
// references (pair_address, signal_id) point at tables that already exist.
func AllTables() []interface{} {
	return []interface{}{
		&Token{},
		&Pair{},
		&Snapshot{},
		&DumpWatchlistEntry{},
		&StrategyDecision{},
		&StrategyLatest{},
		&SignalCooldown{},
		&SignalEvent{},
		&SignalEvaluation{},
		&SignalTriggerEvaluation{},
		&AppStatus{},
	}
}
