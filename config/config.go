package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del engine.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Risk      RiskConfig      `yaml:"risk"`
	Gas       GasConfig       `yaml:"gas"`
	Scorer    ScorerConfig    `yaml:"scorer"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// EngineConfig controla el comportamiento del orquestador.
type EngineConfig struct {
	IntervalSeconds   int       `yaml:"interval_seconds"`
	BaseToken         string    `yaml:"base_token"`    // token de entrada/salida de toda ruta (stablecoin)
	BaseDecimals      int       `yaml:"base_decimals"` // decimales del token base (USDC = 6)
	Tokens            []string  `yaml:"tokens"`        // tokens intermedios para generar rutas
	Venues            []string  `yaml:"venues"`        // exactamente dos AMMs de producto constante
	CandidateSizesUsd []float64 `yaml:"candidate_sizes_usd"`
	MinProfitUsd      float64   `yaml:"min_profit_usd"`
	ScoreThreshold    float64   `yaml:"score_threshold"`
	SlippageBps       int64     `yaml:"slippage_bps"` // coste de slippage modelado sobre el notional
	RouteWorkers      int       `yaml:"route_workers"`
}

// RiskConfig son los límites iniciales del risk controller.
type RiskConfig struct {
	MaxDailyLossUsd        float64 `yaml:"max_daily_loss_usd"`
	MaxNotionalUsd         float64 `yaml:"max_notional_usd"`
	MaxTradesPerHour       int     `yaml:"max_trades_per_hour"`
	MaxConsecutiveLosses   int     `yaml:"max_consecutive_losses"`
	CooldownAfterLossMs    int64   `yaml:"cooldown_after_loss_ms"`
	MinTimeBetweenTradesMs int64   `yaml:"min_time_between_trades_ms"`
}

// GasConfig controla el estimador conservador de gas.
type GasConfig struct {
	OracleURL    string  `yaml:"oracle_url"`
	GasPerLeg    uint64  `yaml:"gas_per_leg"`
	BaseGas      uint64  `yaml:"base_gas"`
	InflationPct int64   `yaml:"inflation_pct"` // margen sobre el precio del oráculo
	FallbackGwei float64 `yaml:"fallback_gwei"` // precio fijo si el oráculo no responde
	NativeUsd    float64 `yaml:"native_usd"`    // precio USD del token nativo para convertir el coste
}

// ScorerConfig apunta al servicio externo de confidence scoring.
type ScorerConfig struct {
	URL string `yaml:"url"` // vacío = scorer estático (dry-run)
}

// AnalyticsConfig controla el retuning periódico de límites.
type AnalyticsConfig struct {
	RetuneIntervalMinutes int         `yaml:"retune_interval_minutes"`
	RiskFreeRate          float64     `yaml:"risk_free_rate"`
	LowLiquidityHours     []HourRange `yaml:"low_liquidity_hours"`
	PeakHours             []HourRange `yaml:"peak_hours"`
}

// HourRange es un rango horario UTC [from, to); soporta wrap por medianoche.
type HourRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// APIConfig controla el servidor de operaciones.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"` // vacío = API deshabilitada
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return &cfg, nil
}

// CycleInterval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Engine.IntervalSeconds) * time.Second
}

// RetuneInterval devuelve el intervalo de retuning como time.Duration.
func (c *Config) RetuneInterval() time.Duration {
	return time.Duration(c.Analytics.RetuneIntervalMinutes) * time.Minute
}

// Validate detecta configuraciones estructuralmente inválidas, fatales al arrancar.
func (c *Config) Validate() error {
	if c.Engine.BaseToken == "" {
		return fmt.Errorf("engine.base_token is required")
	}
	if len(c.Engine.Venues) != 2 {
		return fmt.Errorf("engine.venues: expected exactly 2 venues, got %d", len(c.Engine.Venues))
	}
	if len(c.Engine.Tokens) == 0 {
		return fmt.Errorf("engine.tokens: at least one intermediate token is required")
	}
	for _, sz := range c.Engine.CandidateSizesUsd {
		if sz <= 0 {
			return fmt.Errorf("engine.candidate_sizes_usd: sizes must be positive, got %v", sz)
		}
	}
	if c.Risk.MaxDailyLossUsd <= 0 {
		return fmt.Errorf("risk.max_daily_loss_usd must be positive")
	}
	if c.Risk.MaxNotionalUsd <= 0 {
		return fmt.Errorf("risk.max_notional_usd must be positive")
	}
	if c.Risk.MaxTradesPerHour <= 0 {
		return fmt.Errorf("risk.max_trades_per_hour must be positive")
	}
	if c.Risk.MaxConsecutiveLosses <= 0 {
		return fmt.Errorf("risk.max_consecutive_losses must be positive")
	}
	for _, h := range append(append([]HourRange{}, c.Analytics.LowLiquidityHours...), c.Analytics.PeakHours...) {
		if h.From < 0 || h.From > 23 || h.To < 0 || h.To > 24 {
			return fmt.Errorf("analytics: hour range %d-%d out of bounds", h.From, h.To)
		}
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("GAS_ORACLE_URL"); v != "" {
		cfg.Gas.OracleURL = v
	}
	if v := os.Getenv("SCORER_URL"); v != "" {
		cfg.Scorer.URL = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.IntervalSeconds <= 0 {
		cfg.Engine.IntervalSeconds = 5
	}
	if cfg.Engine.BaseDecimals <= 0 {
		cfg.Engine.BaseDecimals = 6
	}
	if len(cfg.Engine.CandidateSizesUsd) == 0 {
		cfg.Engine.CandidateSizesUsd = []float64{250, 500, 1000, 2500, 5000}
	}
	if cfg.Engine.MinProfitUsd <= 0 {
		cfg.Engine.MinProfitUsd = 1
	}
	if cfg.Engine.ScoreThreshold <= 0 {
		cfg.Engine.ScoreThreshold = 0.6
	}
	if cfg.Risk.MaxDailyLossUsd == 0 {
		cfg.Risk.MaxDailyLossUsd = 500
	}
	if cfg.Risk.MaxNotionalUsd == 0 {
		cfg.Risk.MaxNotionalUsd = 5000
	}
	if cfg.Risk.MaxTradesPerHour == 0 {
		cfg.Risk.MaxTradesPerHour = 20
	}
	if cfg.Risk.MaxConsecutiveLosses == 0 {
		cfg.Risk.MaxConsecutiveLosses = 5
	}
	if cfg.Risk.CooldownAfterLossMs == 0 {
		cfg.Risk.CooldownAfterLossMs = 60_000
	}
	if cfg.Risk.MinTimeBetweenTradesMs == 0 {
		cfg.Risk.MinTimeBetweenTradesMs = 5_000
	}
	if cfg.Gas.GasPerLeg == 0 {
		cfg.Gas.GasPerLeg = 180_000
	}
	if cfg.Gas.BaseGas == 0 {
		cfg.Gas.BaseGas = 40_000
	}
	if cfg.Gas.InflationPct == 0 {
		cfg.Gas.InflationPct = 25
	}
	if cfg.Gas.FallbackGwei == 0 {
		// Peor que cualquier precio realista: sin oráculo preferimos
		// perder la oportunidad antes que operar con coste desconocido.
		cfg.Gas.FallbackGwei = 150
	}
	if cfg.Gas.NativeUsd == 0 {
		cfg.Gas.NativeUsd = 1
	}
	if cfg.Analytics.RetuneIntervalMinutes <= 0 {
		cfg.Analytics.RetuneIntervalMinutes = 30
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "triarb.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
