package config

const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppHTTPAddr  = ":9992"
	defaultBinanceREST  = "https://api.binance.com"
	defaultYahooBase    = "https://query1.finance.yahoo.com"
	defaultHTTPTimeout  = 15
	defaultScanWorkers  = 10
	defaultScanLookback = 365
	defaultSimLookback  = 3 * 365
	defaultSimBalance   = 100000
	defaultMinConf      = 70
	defaultMinPrice     = 5
	defaultResultsDir   = "data/backtest"
	defaultSnapshotDB   = "data/tracker.db"
	defaultUniversePath = "configs/universe.yaml"
)

// DefaultRiskParams returns the tuned risk profile. Callers receive a copy;
// nothing mutates this at runtime.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		RiskPerTradePct:     0.02,
		MaxPositionPct:      0.10,
		MaxRiskPct:          0.02,
		InitialStopATR:      2.0,
		BreakevenTriggerATR: 1.5,
		TrailingStopATR:     2.0,
		TP1ATR:              2.0,
	}
}

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Market.applyDefaults()
	c.Scan.applyDefaults()
	c.Sim.applyDefaults()
	c.Risk.applyDefaults()
	c.Store.applyDefaults()
	if c.Universe.Path == "" {
		c.Universe.Path = defaultUniversePath
	}
}

func (a *AppConfig) applyDefaults() {
	if a.Env == "" {
		a.Env = defaultAppEnv
	}
	if a.LogLevel == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if a.HTTPAddr == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
}

func (m *MarketConfig) applyDefaults() {
	if m.BinanceRESTURL == "" {
		m.BinanceRESTURL = defaultBinanceREST
	}
	if m.YahooBaseURL == "" {
		m.YahooBaseURL = defaultYahooBase
	}
	if m.HTTPTimeoutSeconds <= 0 {
		m.HTTPTimeoutSeconds = defaultHTTPTimeout
	}
}

func (s *ScanConfig) applyDefaults() {
	if s.Workers <= 0 {
		s.Workers = defaultScanWorkers
	}
	if s.LookbackDays <= 0 {
		s.LookbackDays = defaultScanLookback
	}
	if s.MinConfidence <= 0 {
		s.MinConfidence = defaultMinConf
	}
}

func (s *SimConfig) applyDefaults() {
	if s.InitialBalance <= 0 {
		s.InitialBalance = defaultSimBalance
	}
	if s.LookbackDays <= 0 {
		s.LookbackDays = defaultSimLookback
	}
	if s.MinConfidence <= 0 {
		s.MinConfidence = defaultMinConf
	}
	if s.MinPrice <= 0 {
		s.MinPrice = defaultMinPrice
	}
}

func (r *RiskParams) applyDefaults() {
	def := DefaultRiskParams()
	if r.RiskPerTradePct <= 0 {
		r.RiskPerTradePct = def.RiskPerTradePct
	}
	if r.MaxPositionPct <= 0 {
		r.MaxPositionPct = def.MaxPositionPct
	}
	if r.MaxRiskPct <= 0 {
		r.MaxRiskPct = def.MaxRiskPct
	}
	if r.InitialStopATR <= 0 {
		r.InitialStopATR = def.InitialStopATR
	}
	if r.BreakevenTriggerATR <= 0 {
		r.BreakevenTriggerATR = def.BreakevenTriggerATR
	}
	if r.TrailingStopATR <= 0 {
		r.TrailingStopATR = def.TrailingStopATR
	}
	if r.TP1ATR <= 0 {
		r.TP1ATR = def.TP1ATR
	}
}

func (s *StoreConfig) applyDefaults() {
	if s.ResultsDir == "" {
		s.ResultsDir = defaultResultsDir
	}
	if s.SnapshotDB == "" {
		s.SnapshotDB = defaultSnapshotDB
	}
}
