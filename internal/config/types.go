package config

// Config is the top-level configuration carrier.
type Config struct {
	App      AppConfig      `toml:"app"`
	Market   MarketConfig   `toml:"market"`
	Scan     ScanConfig     `toml:"scan"`
	Sim      SimConfig      `toml:"sim"`
	Risk     RiskParams     `toml:"risk"`
	Store    StoreConfig    `toml:"store"`
	Universe UniverseConfig `toml:"universe"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

type MarketConfig struct {
	BinanceRESTURL     string `toml:"binance_rest_url"`
	YahooBaseURL       string `toml:"yahoo_base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
}

type ScanConfig struct {
	Workers       int     `toml:"workers"`
	LookbackDays  int     `toml:"lookback_days"`
	MinConfidence float64 `toml:"min_confidence"`
}

type SimConfig struct {
	InitialBalance float64 `toml:"initial_balance"`
	LookbackDays   int     `toml:"lookback_days"`
	MinConfidence  float64 `toml:"min_confidence"`
	MinPrice       float64 `toml:"min_price"`
}

// RiskParams is the explicit, immutable risk configuration passed by value
// into every sizing and position-creation call. There is no mutable global;
// DefaultRiskParams returns a fresh copy.
type RiskParams struct {
	RiskPerTradePct     float64 `toml:"risk_per_trade_pct"`
	MaxPositionPct      float64 `toml:"max_position_pct"`
	MaxRiskPct          float64 `toml:"max_risk_pct"`
	InitialStopATR      float64 `toml:"initial_stop_atr"`
	BreakevenTriggerATR float64 `toml:"breakeven_trigger_atr"`
	TrailingStopATR     float64 `toml:"trailing_stop_atr"`
	TP1ATR              float64 `toml:"tp1_atr"`
}

type StoreConfig struct {
	ResultsDir string `toml:"results_dir"`
	SnapshotDB string `toml:"snapshot_db"`
}

type UniverseConfig struct {
	Path string `toml:"path"`
}
