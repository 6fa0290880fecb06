// Package main provides the game server binary that hosts the skill
// progression and combat core behind the host event surface.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/clock"
	"github.com/cory-johannsen/skillforge/internal/config"
	"github.com/cory-johannsen/skillforge/internal/game/combat"
	"github.com/cory-johannsen/skillforge/internal/game/dice"
	"github.com/cory-johannsen/skillforge/internal/game/equipment"
	"github.com/cory-johannsen/skillforge/internal/game/health"
	"github.com/cory-johannsen/skillforge/internal/game/mob"
	"github.com/cory-johannsen/skillforge/internal/game/progression"
	"github.com/cory-johannsen/skillforge/internal/game/session"
	"github.com/cory-johannsen/skillforge/internal/game/stats"
	"github.com/cory-johannsen/skillforge/internal/gameserver"
	"github.com/cory-johannsen/skillforge/internal/hostlink"
	"github.com/cory-johannsen/skillforge/internal/messaging"
	"github.com/cory-johannsen/skillforge/internal/observability"
	"github.com/cory-johannsen/skillforge/internal/scripting"
	"github.com/cory-johannsen/skillforge/internal/server"
	"github.com/cory-johannsen/skillforge/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("mode", cfg.Server.Mode),
		zap.String("storage", cfg.Storage.Backend),
	)

	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)

	// Messages
	var catalog *messaging.Catalog
	if cfg.Content.LocalesDir != "" {
		catalog, err = messaging.LoadDir(cfg.Content.LocalesDir)
	} else {
		catalog, err = messaging.LoadEmbedded()
	}
	if err != nil {
		logger.Fatal("loading message catalog", zap.Error(err))
	}
	if missing := catalog.Missing(); len(missing) > 0 {
		logger.Fatal("base locale is missing message keys", zap.Strings("keys", missing))
	}
	logger.Info("message catalog loaded", zap.Strings("locales", catalog.Locales()))
	router := hostlink.NewRouter(messaging.LogDelivery{Logger: logger.Named("delivery")}, logger)
	sink := messaging.NewDispatcher(catalog, router, logger)

	// Pool formulas, optionally scripted
	statsCfg := cfg.Stats.Engine()
	var pools stats.PoolFormula = stats.DefaultPools{Config: statsCfg}
	if cfg.Content.ScriptsDir != "" {
		scripted, scripts, err := scripting.LoadPools(cfg.Content.ScriptsDir, statsCfg, cfg.Scripting.InstructionLimit, logger)
		if err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		defer scripts.Close()
		pools = scripted
		logger.Info("pool scripts loaded", zap.String("dir", cfg.Content.ScriptsDir))
	}
	deriver := stats.NewDeriver(statsCfg, pools)

	// Content
	templates, err := mob.LoadTemplates(cfg.Content.MobsDir)
	if err != nil {
		logger.Fatal("loading mob templates", zap.Error(err))
	}
	mobs, err := mob.NewRegistry(templates, cfg.Combat.MobDefaults())
	if err != nil {
		logger.Fatal("indexing mob templates", zap.Error(err))
	}
	weaponDefs, err := equipment.LoadWeapons(cfg.Content.WeaponsDir)
	if err != nil {
		logger.Fatal("loading weapons", zap.Error(err))
	}
	weapons, err := equipment.NewRegistry(weaponDefs, cfg.Combat.DamageIncreaseCap)
	if err != nil {
		logger.Fatal("indexing weapons", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("mobs", mobs.Len()),
		zap.Int("weapons", len(weapons.IDs())),
	)

	// Persistence
	dbStart := time.Now()
	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("closing storage", zap.Error(err))
		}
	}()
	logger.Info("storage opened",
		zap.String("backend", cfg.Storage.Backend),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	var gw session.Gateway = backend
	if cfg.Server.Mode == "readonly" {
		gw = session.ReadOnly(backend)
		logger.Warn("read-only mode: player writes are discarded")
	}

	// Core
	clk := clock.New()
	cache := session.NewCache(gw, clk, deriver, logger, cfg.Autosave.Workers)
	prog := progression.NewEngine(cfg.Progression.Engine(), roller, clk, deriver, sink, logger)
	resolver := combat.NewResolver(cfg.Combat.Engine(), roller, prog, mobs, sink, logger)
	bridge := health.NewBridge(cfg.Health.Bridge(), router, logger)
	srv := gameserver.NewServer(cache, prog, resolver, bridge, weapons, roller, sink, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownGrace)
	lifecycle.Add("autosave", gameserver.NewAutosaver(cache, cfg.Autosave.Interval, logger))
	if cfg.HostLink.Enabled {
		lifecycle.Add("hostlink", hostlink.NewAcceptor(cfg.HostLink, hostlink.NewHandler(srv, router, logger), logger))
	} else {
		logger.Warn("host link disabled: no gameplay events will arrive")
	}

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Duration("autosave_interval", cfg.Autosave.Interval),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("game server stopped with error", zap.Error(err))
	}
	logger.Info("game server stopped", zap.Int("online", srv.Online()))
}
