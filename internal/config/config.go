// Package config provides Viper-based configuration loading for the skillforge server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/skillforge/internal/game/combat"
	"github.com/cory-johannsen/skillforge/internal/game/health"
	"github.com/cory-johannsen/skillforge/internal/game/mob"
	"github.com/cory-johannsen/skillforge/internal/game/progression"
	"github.com/cory-johannsen/skillforge/internal/game/stats"
)

// Storage backends accepted by StorageConfig.Backend.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode is the server operation mode: "standalone" runs the game core with
	// autosave, "readonly" loads content and players but never writes.
	Mode string `mapstructure:"mode"`
	// ShutdownGrace bounds how long each service may take to stop.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// HostLinkConfig holds the listener the host engine connects to for
// delivering gameplay events.
type HostLinkConfig struct {
	// Enabled starts the listener; when false the server only autosaves.
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxSessions caps concurrent host connections.
	MaxSessions  int           `mapstructure:"max_sessions"`
}

// Addr returns the listen address in host:port form.
func (h HostLinkConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is one of "postgres", "redis", or "sqlite".
	Backend string `mapstructure:"backend"`
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
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SQLiteConfig holds the single-node database file location.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ProgressionConfig holds the skill gain tuning.
type ProgressionConfig struct {
	TotalSkillCap  float64 `mapstructure:"total_skill_cap"`
	GainAmount     float64 `mapstructure:"gain_amount"`
	MinGainChance  float64 `mapstructure:"min_gain_chance"`
	MaxGainChance  float64 `mapstructure:"max_gain_chance"`
	OptimalBand    float64 `mapstructure:"optimal_band"`
	HardModifier   float64 `mapstructure:"hard_modifier"`
	EasyModifier   float64 `mapstructure:"easy_modifier"`
	SuccessFloor   float64 `mapstructure:"success_floor"`
	SuccessCeiling float64 `mapstructure:"success_ceiling"`
}

// Engine maps the section onto the progression engine's Config.
func (p ProgressionConfig) Engine() progression.Config {
	return progression.Config{
		TotalCap:       p.TotalSkillCap,
		GainAmount:     p.GainAmount,
		MinChance:      p.MinGainChance,
		MaxChance:      p.MaxGainChance,
		OptimalBand:    p.OptimalBand,
		HardModifier:   p.HardModifier,
		EasyModifier:   p.EasyModifier,
		SuccessFloor:   p.SuccessFloor,
		SuccessCeiling: p.SuccessCeiling,
	}
}

// StatsConfig holds the resource pool bases.
type StatsConfig struct {
	BaseHP      float64 `mapstructure:"base_hp"`
	BaseMana    float64 `mapstructure:"base_mana"`
	BaseStamina float64 `mapstructure:"base_stamina"`
}

// Engine maps the section onto the stat deriver's Config.
func (s StatsConfig) Engine() stats.Config {
	return stats.Config{BaseHP: s.BaseHP, BaseMana: s.BaseMana, BaseStamina: s.BaseStamina}
}

// CombatConfig holds combat tuning and the fallbacks for unknown mobs.
type CombatConfig struct {
	CritCap              float64 `mapstructure:"crit_cap"`
	CritMultiplier       float64 `mapstructure:"crit_multiplier"`
	DefenseConstant      float64 `mapstructure:"defense_constant"`
	HitFloor             float64 `mapstructure:"hit_floor"`
	HitCeiling           float64 `mapstructure:"hit_ceiling"`
	ShieldParryFactor    float64 `mapstructure:"shield_parry_factor"`
	ShieldParryCap       float64 `mapstructure:"shield_parry_cap"`
	WeaponParryFactor    float64 `mapstructure:"weapon_parry_factor"`
	WeaponParryCap       float64 `mapstructure:"weapon_parry_cap"`
	ResistCap            float64 `mapstructure:"resist_cap"`
	DamageIncreaseCap    float64 `mapstructure:"damage_increase_cap"`
	DefaultMobDifficulty int     `mapstructure:"default_mob_difficulty"`
	DefaultMobDefense    int     `mapstructure:"default_mob_defense"`
}

// Engine maps the section onto the combat resolver's Config.
func (c CombatConfig) Engine() combat.Config {
	return combat.Config{
		CritCap:           c.CritCap,
		CritMultiplier:    c.CritMultiplier,
		DefenseConstant:   c.DefenseConstant,
		HitFloor:          c.HitFloor,
		HitCeiling:        c.HitCeiling,
		ShieldParryFactor: c.ShieldParryFactor,
		ShieldParryCap:    c.ShieldParryCap,
		WeaponParryFactor: c.WeaponParryFactor,
		WeaponParryCap:    c.WeaponParryCap,
		ResistCap:         c.ResistCap,
	}
}

// MobDefaults returns the difficulty and defense used for unknown mob kinds.
func (c CombatConfig) MobDefaults() mob.Defaults {
	return mob.Defaults{Difficulty: c.DefaultMobDifficulty, PhysicalDefense: c.DefaultMobDefense}
}

// HealthConfig holds the host health scale mapping.
type HealthConfig struct {
	HostMaxHealth        float64 `mapstructure:"host_max_health"`
	HostDamageMultiplier float64 `mapstructure:"host_damage_multiplier"`
}

// Bridge maps the section onto the health bridge's Config.
func (h HealthConfig) Bridge() health.Config {
	return health.Config{HostMaxHealth: h.HostMaxHealth, HostDamageMultiplier: h.HostDamageMultiplier}
}

// AutosaveConfig holds periodic persistence settings.
type AutosaveConfig struct {
	// Interval is the time between SaveAll passes.
	Interval time.Duration `mapstructure:"interval"`
	// Workers bounds the number of concurrent record writes per pass.
	Workers int `mapstructure:"workers"`
}

// ContentConfig holds the locations of YAML and Lua content.
type ContentConfig struct {
	MobsDir    string `mapstructure:"mobs_dir"`
	WeaponsDir string `mapstructure:"weapons_dir"`
	// LocalesDir overrides the embedded message catalogs when non-empty.
	LocalesDir string `mapstructure:"locales_dir"`
	// ScriptsDir holds pool formula scripts; empty uses the built-in formulas.
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// ScriptingConfig holds Lua sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit caps the VM instructions per hook call; 0 uses the sandbox default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	HostLink    HostLinkConfig    `mapstructure:"hostlink"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	SQLite      SQLiteConfig      `mapstructure:"sqlite"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Progression ProgressionConfig `mapstructure:"progression"`
	Stats       StatsConfig       `mapstructure:"stats"`
	Combat      CombatConfig      `mapstructure:"combat"`
	Health      HealthConfig      `mapstructure:"health"`
	Autosave    AutosaveConfig    `mapstructure:"autosave"`
	Content     ContentConfig     `mapstructure:"content"`
	Scripting   ScriptingConfig   `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateHostLink(c.HostLink); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateStorage(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Progression.Engine().Validate(); err != nil {
		errs = append(errs, "progression: "+err.Error())
	}
	if err := validateStats(c.Stats); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Health.Bridge().Validate(); err != nil {
		errs = append(errs, "health: "+err.Error())
	}
	if err := validateAutosave(c.Autosave); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Content.MobsDir == "" {
		errs = append(errs, "content.mobs_dir must not be empty")
	}
	if c.Content.WeaponsDir == "" {
		errs = append(errs, "content.weapons_dir must not be empty")
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	validModes := map[string]bool{"standalone": true, "readonly": true}
	if !validModes[s.Mode] {
		return fmt.Errorf("server.mode must be one of [standalone, readonly], got %q", s.Mode)
	}
	if s.ShutdownGrace <= 0 {
		return fmt.Errorf("server.shutdown_grace must be > 0, got %s", s.ShutdownGrace)
	}
	return nil
}

func validateHostLink(h HostLinkConfig) error {
	if !h.Enabled {
		return nil
	}
	var errs []string
	if h.Port < 1 || h.Port > 65535 {
		errs = append(errs, fmt.Sprintf("hostlink.port must be 1-65535, got %d", h.Port))
	}
	if h.ReadTimeout < 0 {
		errs = append(errs, "hostlink.read_timeout must be >= 0")
	}
	if h.WriteTimeout < 0 {
		errs = append(errs, "hostlink.write_timeout must be >= 0")
	}
	if h.MaxSessions < 1 {
		errs = append(errs, fmt.Sprintf("hostlink.max_sessions must be >= 1, got %d", h.MaxSessions))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validateStorage checks the selected backend and only that backend's section.
func (c Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendPostgres:
		return validateDatabase(c.Database)
	case BackendRedis:
		return validateRedis(c.Redis)
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path must not be empty")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend must be one of [postgres, redis, sqlite], got %q", c.Storage.Backend)
	}
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
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRedis(r RedisConfig) error {
	var errs []string
	if r.Addr == "" {
		errs = append(errs, "redis.addr must not be empty")
	}
	if r.DB < 0 {
		errs = append(errs, fmt.Sprintf("redis.db must be >= 0, got %d", r.DB))
	}
	if r.PoolSize < 0 {
		errs = append(errs, fmt.Sprintf("redis.pool_size must be >= 0, got %d", r.PoolSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
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

func validateStats(s StatsConfig) error {
	var errs []string
	if s.BaseHP <= 0 {
		errs = append(errs, fmt.Sprintf("stats.base_hp must be > 0, got %v", s.BaseHP))
	}
	if s.BaseMana < 0 {
		errs = append(errs, fmt.Sprintf("stats.base_mana must be >= 0, got %v", s.BaseMana))
	}
	if s.BaseStamina < 0 {
		errs = append(errs, fmt.Sprintf("stats.base_stamina must be >= 0, got %v", s.BaseStamina))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if err := c.Engine().Validate(); err != nil {
		errs = append(errs, "combat: "+err.Error())
	}
	if c.DamageIncreaseCap < 0 {
		errs = append(errs, fmt.Sprintf("combat.damage_increase_cap must be >= 0, got %v", c.DamageIncreaseCap))
	}
	if c.DefaultMobDifficulty < 0 {
		errs = append(errs, fmt.Sprintf("combat.default_mob_difficulty must be >= 0, got %d", c.DefaultMobDifficulty))
	}
	if c.DefaultMobDefense < 0 {
		errs = append(errs, fmt.Sprintf("combat.default_mob_defense must be >= 0, got %d", c.DefaultMobDefense))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAutosave(a AutosaveConfig) error {
	var errs []string
	if a.Interval <= 0 {
		errs = append(errs, fmt.Sprintf("autosave.interval must be > 0, got %s", a.Interval))
	}
	if a.Workers < 1 {
		errs = append(errs, fmt.Sprintf("autosave.workers must be >= 1, got %d", a.Workers))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
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

	// Environment variable overrides with SKILLFORGE_ prefix
	v.SetEnvPrefix("SKILLFORGE")
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

// Defaults returns a Viper instance carrying only the built-in defaults.
//
// Postcondition: LoadFromViper(Defaults()) succeeds.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "standalone")
	v.SetDefault("server.shutdown_grace", "30s")

	v.SetDefault("hostlink.enabled", true)
	v.SetDefault("hostlink.host", "127.0.0.1")
	v.SetDefault("hostlink.port", 4100)
	v.SetDefault("hostlink.read_timeout", "0s")
	v.SetDefault("hostlink.write_timeout", "10s")
	v.SetDefault("hostlink.max_sessions", 4)

	v.SetDefault("storage.backend", BackendPostgres)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skillforge")
	v.SetDefault("database.password", "skillforge")
	v.SetDefault("database.name", "skillforge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", "skillforge:")

	v.SetDefault("sqlite.path", "skillforge.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	pd := progression.DefaultConfig()
	v.SetDefault("progression.total_skill_cap", pd.TotalCap)
	v.SetDefault("progression.gain_amount", pd.GainAmount)
	v.SetDefault("progression.min_gain_chance", pd.MinChance)
	v.SetDefault("progression.max_gain_chance", pd.MaxChance)
	v.SetDefault("progression.optimal_band", pd.OptimalBand)
	v.SetDefault("progression.hard_modifier", pd.HardModifier)
	v.SetDefault("progression.easy_modifier", pd.EasyModifier)
	v.SetDefault("progression.success_floor", pd.SuccessFloor)
	v.SetDefault("progression.success_ceiling", pd.SuccessCeiling)

	sd := stats.DefaultConfig()
	v.SetDefault("stats.base_hp", sd.BaseHP)
	v.SetDefault("stats.base_mana", sd.BaseMana)
	v.SetDefault("stats.base_stamina", sd.BaseStamina)

	cd := combat.DefaultConfig()
	v.SetDefault("combat.crit_cap", cd.CritCap)
	v.SetDefault("combat.crit_multiplier", cd.CritMultiplier)
	v.SetDefault("combat.defense_constant", cd.DefenseConstant)
	v.SetDefault("combat.hit_floor", cd.HitFloor)
	v.SetDefault("combat.hit_ceiling", cd.HitCeiling)
	v.SetDefault("combat.shield_parry_factor", cd.ShieldParryFactor)
	v.SetDefault("combat.shield_parry_cap", cd.ShieldParryCap)
	v.SetDefault("combat.weapon_parry_factor", cd.WeaponParryFactor)
	v.SetDefault("combat.weapon_parry_cap", cd.WeaponParryCap)
	v.SetDefault("combat.resist_cap", cd.ResistCap)
	v.SetDefault("combat.damage_increase_cap", 100)
	v.SetDefault("combat.default_mob_difficulty", 20)
	v.SetDefault("combat.default_mob_defense", 0)

	hd := health.DefaultConfig()
	v.SetDefault("health.host_max_health", hd.HostMaxHealth)
	v.SetDefault("health.host_damage_multiplier", hd.HostDamageMultiplier)

	v.SetDefault("autosave.interval", "5m")
	v.SetDefault("autosave.workers", 4)

	v.SetDefault("content.mobs_dir", "content/mobs")
	v.SetDefault("content.weapons_dir", "content/weapons")
	v.SetDefault("content.locales_dir", "")
	v.SetDefault("content.scripts_dir", "")

	v.SetDefault("scripting.instruction_limit", 100000)
}
