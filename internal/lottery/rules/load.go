package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
)

// Config é a forma em arquivo das regras. Campos ausentes mantêm o padrão.
type Config struct {
	Timezone      string                    `yaml:"timezone" toml:"timezone"`
	OpenHour      *int                      `yaml:"open_hour" toml:"open_hour"`
	CloseHour     *int                      `yaml:"close_hour" toml:"close_hour"`
	DrawHour      *int                      `yaml:"draw_hour" toml:"draw_hour"`
	MinWithdrawal *int64                    `yaml:"min_withdrawal" toml:"min_withdrawal"`
	Modalities    map[string]ModalityConfig `yaml:"modalities" toml:"modalities"`
}

// ModalityConfig sobrescreve teto e multiplicador de uma modalidade
type ModalityConfig struct {
	Cap        *int64 `yaml:"cap" toml:"cap"`
	Multiplier *int64 `yaml:"multiplier" toml:"multiplier"`
}

// Load lê YAML ou TOML conforme a extensão. Caminho vazio devolve Default.
func Load(path string) (Rules, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return Rules{}, fmt.Errorf("rules file %s: unsupported extension", path)
	}
	if err != nil {
		return Rules{}, fmt.Errorf("decode rules file: %w", err)
	}
	return Build(cfg)
}

// Build aplica cfg sobre o padrão e valida o resultado
func Build(cfg Config) (Rules, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Rules{}, fmt.Errorf("timezone %q: %w", tz, err)
	}

	r := Rules{
		modalities:    make(map[domain.Modality]ModalityRule, len(baseModalities)),
		location:      loc,
		openHour:      intOr(cfg.OpenHour, DefaultOpenHour),
		closeHour:     intOr(cfg.CloseHour, DefaultCloseHour),
		drawHour:      intOr(cfg.DrawHour, DefaultDrawHour),
		minWithdrawal: DefaultMinWithdrawal,
	}
	if cfg.MinWithdrawal != nil {
		r.minWithdrawal = *cfg.MinWithdrawal
	}
	for m, mr := range baseModalities {
		r.modalities[m] = mr
	}

	for name, mc := range cfg.Modalities {
		m, err := domain.ParseModality(name)
		if err != nil {
			return Rules{}, fmt.Errorf("rules: %w", err)
		}
		mr := r.modalities[m]
		if mc.Cap != nil {
			mr.Cap = *mc.Cap
		}
		if mc.Multiplier != nil {
			mr.Multiplier = *mc.Multiplier
		}
		r.modalities[m] = mr
	}

	if err := r.validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r Rules) validate() error {
	if r.openHour < 0 || r.closeHour > 24 || r.openHour >= r.closeHour {
		return fmt.Errorf("rules: invalid betting window [%d,%d)", r.openHour, r.closeHour)
	}
	if r.drawHour < 0 || r.drawHour > 23 {
		return fmt.Errorf("rules: invalid draw hour %d", r.drawHour)
	}
	if r.minWithdrawal < 0 {
		return fmt.Errorf("rules: negative minimum withdrawal")
	}
	for m, mr := range r.modalities {
		if mr.Cap <= 0 {
			return fmt.Errorf("rules: %s cap must be positive", m)
		}
		if mr.Multiplier <= 0 {
			return fmt.Errorf("rules: %s multiplier must be positive", m)
		}
	}
	return nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
