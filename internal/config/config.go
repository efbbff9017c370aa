package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"Delorian/internal/calculator"
	"Delorian/internal/model"
	"Delorian/internal/optimizer"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Data source providers.
const (
	ProviderYahoo = "yahoo"
	ProviderREST  = "rest"
	ProviderMock  = "mock"
)

// Config holds all application configuration.
type Config struct {
	Run struct {
		Symbol      string  `yaml:"symbol" validate:"required"`
		Interval    string  `yaml:"interval" validate:"oneof=1h 1d"`
		StartDate   string  `yaml:"start_date" validate:"datetime=2006-01-02"`
		EndDate     string  `yaml:"end_date" validate:"datetime=2006-01-02"`
		InitialCash float64 `yaml:"initial_cash" validate:"gt=0"`
	} `yaml:"run"`
	WaveTrend struct {
		ChannelLength int `yaml:"channel_length" validate:"min=2"`
		AverageLength int `yaml:"average_length" validate:"min=2"`
		MALength      int `yaml:"ma_length" validate:"min=2"`
	} `yaml:"wave_trend"`
	Grid struct {
		TakeProfit []float64 `yaml:"take_profit" validate:"min=1,dive,gt=0"`
		StopLoss   []float64 `yaml:"stop_loss" validate:"min=1,dive,gt=0"`
		Parallel   *bool     `yaml:"parallel"`
	} `yaml:"grid"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider string `yaml:"provider" validate:"oneof=yahoo rest mock"`
		BaseURL  string `yaml:"base_url" validate:"omitempty,url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"data_source"`
	Schedule struct {
		RunCron string `yaml:"run_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"database"`
	Proxy    string `yaml:"proxy"`
	LogLevel string `yaml:"log_level" validate:"oneof=trace debug info warn error"`

	// Serve is set from the command line, not the file.
	Serve bool `yaml:"-"`
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"SYMBOL", &c.Run.Symbol},
		{"INTERVAL", &c.Run.Interval},
		{"START_DATE", &c.Run.StartDate},
		{"END_DATE", &c.Run.EndDate},
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &c.Telegram.ChatID},
		{"DATA_PROVIDER", &c.DataSource.Provider},
		{"DATA_BASE_URL", &c.DataSource.BaseURL},
		{"DATA_API_KEY", &c.DataSource.APIKey},
		{"HTTPS_PROXY", &c.Proxy},
		{"SQLITE_PATH", &c.Database.SQLitePath},
		{"DATABASE_URL", &c.Database.PostgresDSN},
		{"CRON_RUN", &c.Schedule.RunCron},
		{"LOG_LEVEL", &c.LogLevel},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("INITIAL_CASH"); v != "" {
		var cash float64
		if _, err := fmt.Sscanf(v, "%f", &cash); err != nil {
			return fmt.Errorf("INITIAL_CASH: %w", err)
		}
		c.Run.InitialCash = cash
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Run.Symbol == "" {
		c.Run.Symbol = "BTC-USD"
	}
	if c.Run.Interval == "" {
		c.Run.Interval = string(model.IntervalDay)
	}
	if c.Run.StartDate == "" {
		c.Run.StartDate = "2022-01-01"
	}
	if c.Run.EndDate == "" {
		c.Run.EndDate = "2023-01-01"
	}
	if c.Run.InitialCash == 0 {
		c.Run.InitialCash = 1000
	}

	params := calculator.DefaultParams()
	if c.WaveTrend.ChannelLength == 0 {
		c.WaveTrend.ChannelLength = params.ChannelLength
	}
	if c.WaveTrend.AverageLength == 0 {
		c.WaveTrend.AverageLength = params.AverageLength
	}
	if c.WaveTrend.MALength == 0 {
		c.WaveTrend.MALength = params.MALength
	}

	grid := optimizer.DefaultGrid()
	if len(c.Grid.TakeProfit) == 0 {
		c.Grid.TakeProfit = grid.TakeProfit
	}
	if len(c.Grid.StopLoss) == 0 {
		c.Grid.StopLoss = grid.StopLoss
	}
	if c.Grid.Parallel == nil {
		parallel := true
		c.Grid.Parallel = &parallel
	}

	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderYahoo
		if c.DataSource.BaseURL != "" {
			c.DataSource.Provider = ProviderREST
		}
	}
	if c.Schedule.RunCron == "" {
		c.Schedule.RunCron = "0 0 8 * * 1"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/delorian.db"
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks field constraints and the rules that span fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Request(); err != nil {
		return err
	}
	if c.DataSource.Provider == ProviderREST && c.DataSource.BaseURL == "" {
		return fmt.Errorf("data_source.base_url is required for the rest provider")
	}
	if c.Serve {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required in serve mode")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required in serve mode")
		}
	}
	return nil
}

// Request builds the configured run request.
func (c *Config) Request() (model.Request, error) {
	interval, err := model.ParseInterval(c.Run.Interval)
	if err != nil {
		return model.Request{}, err
	}
	start, err := time.Parse(model.DateLayout, c.Run.StartDate)
	if err != nil {
		return model.Request{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.Parse(model.DateLayout, c.Run.EndDate)
	if err != nil {
		return model.Request{}, fmt.Errorf("end_date: %w", err)
	}
	if !start.Before(end) {
		return model.Request{}, fmt.Errorf("start_date %s must be before end_date %s", c.Run.StartDate, c.Run.EndDate)
	}
	return model.Request{Symbol: c.Run.Symbol, Interval: interval, Start: start, End: end}, nil
}

// Params returns the Wave Trend lengths.
func (c *Config) Params() calculator.Params {
	return calculator.Params{
		ChannelLength: c.WaveTrend.ChannelLength,
		AverageLength: c.WaveTrend.AverageLength,
		MALength:      c.WaveTrend.MALength,
	}
}

// ExitGrid returns the take-profit/stop-loss grid.
func (c *Config) ExitGrid() optimizer.Grid {
	return optimizer.Grid{TakeProfit: c.Grid.TakeProfit, StopLoss: c.Grid.StopLoss}
}

// Parallel reports whether grid cells run concurrently.
func (c *Config) Parallel() bool {
	return c.Grid.Parallel == nil || *c.Grid.Parallel
}
