// Package config provides Viper-based configuration loading for the battle server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/quizbattle/internal/game/dice"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleConfig holds turn-resolution tuning.
type BattleConfig struct {
	DefendReductionPercent int `mapstructure:"defend_reduction_percent"`
	DefendEnergyBonus      int `mapstructure:"defend_energy_bonus"`
	// DamageVariance is a dice expression added to every attack, e.g. "1d3-2".
	DamageVariance string `mapstructure:"damage_variance"`
	// StartingEnergy, when positive, overrides the character's energy at battle start.
	StartingEnergy int `mapstructure:"starting_energy"`
	// LuaInstructionLimit caps the opcodes of one skill formula evaluation.
	LuaInstructionLimit int `mapstructure:"lua_instruction_limit"`
}

// Question sources.
const (
	QuestionSourceFile     = "file"
	QuestionSourcePostgres = "postgres"
)

// ContentConfig locates the YAML content directories.
type ContentConfig struct {
	MonstersDir  string `mapstructure:"monsters_dir"`
	SkillsDir    string `mapstructure:"skills_dir"`
	QuestionsDir string `mapstructure:"questions_dir"`
	// QuestionSource is "file" for QuestionsDir or "postgres" for the questions table.
	QuestionSource string `mapstructure:"question_source"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Battle   BattleConfig   `mapstructure:"battle"`
	Content  ContentConfig  `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateServer(c.Server),
		validateDatabase(c.Database),
		validateLogging(c.Logging),
		validateBattle(c.Battle),
		validateContent(c.Content),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be positive")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.DefendReductionPercent < 0 || b.DefendReductionPercent > 100 {
		errs = append(errs, fmt.Sprintf("battle.defend_reduction_percent must be 0-100, got %d", b.DefendReductionPercent))
	}
	if b.DefendEnergyBonus < 0 {
		errs = append(errs, fmt.Sprintf("battle.defend_energy_bonus must be >= 0, got %d", b.DefendEnergyBonus))
	}
	if _, err := dice.Parse(b.DamageVariance); err != nil {
		errs = append(errs, fmt.Sprintf("battle.damage_variance: %v", err))
	}
	if b.StartingEnergy < 0 {
		errs = append(errs, fmt.Sprintf("battle.starting_energy must be >= 0, got %d", b.StartingEnergy))
	}
	if b.LuaInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("battle.lua_instruction_limit must be >= 0, got %d", b.LuaInstructionLimit))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.MonstersDir == "" {
		errs = append(errs, "content.monsters_dir must not be empty")
	}
	if c.SkillsDir == "" {
		errs = append(errs, "content.skills_dir must not be empty")
	}
	switch c.QuestionSource {
	case QuestionSourceFile:
		if c.QuestionsDir == "" {
			errs = append(errs, "content.questions_dir must not be empty when question_source is file")
		}
	case QuestionSourcePostgres:
	default:
		errs = append(errs, fmt.Sprintf("content.question_source must be one of [file, postgres], got %q", c.QuestionSource))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// QUIZBATTLE_BATTLE_DEFEND_ENERGY_BONUS overrides battle.defend_energy_bonus
	v.SetEnvPrefix("QUIZBATTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewViper returns a Viper instance carrying every default, for callers that
// configure values programmatically.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "quizbattle")
	v.SetDefault("database.password", "quizbattle")
	v.SetDefault("database.name", "quizbattle")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.defend_reduction_percent", 50)
	v.SetDefault("battle.defend_energy_bonus", 10)
	v.SetDefault("battle.damage_variance", "1d3-2")
	v.SetDefault("battle.starting_energy", 0)
	v.SetDefault("battle.lua_instruction_limit", 10000)

	v.SetDefault("content.monsters_dir", "content/monsters")
	v.SetDefault("content.skills_dir", "content/skills")
	v.SetDefault("content.questions_dir", "content/questions")
	v.SetDefault("content.question_source", QuestionSourceFile)
}
