package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deadgrid/server/internal/config"
	"github.com/deadgrid/server/internal/data"
	"github.com/deadgrid/server/internal/persist"
	"github.com/deadgrid/server/internal/scripting"
	"github.com/deadgrid/server/internal/system"
	"github.com/deadgrid/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("DEADGRID_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting", zap.String("server", cfg.Server.Name))

	// 3. Connect to PostgreSQL and run migrations
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	sessionRepo := persist.NewSessionRepo(db)

	// 4. Load catalogs
	itemTable, err := data.LoadItemTable("data/yaml/item_list.yaml")
	if err != nil {
		return fmt.Errorf("load item table: %w", err)
	}
	log.Info("loaded item definitions", zap.Int("count", itemTable.Count()))

	recipeTable, err := data.LoadRecipeTable("data/yaml/recipe_list.yaml", itemTable)
	if err != nil {
		return fmt.Errorf("load recipe table: %w", err)
	}
	log.Info("loaded recipes", zap.Int("count", recipeTable.Count()))

	// 5. Start the scripting engine
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()

	// 6. Restore the configured session slot, or start fresh
	slot := cfg.Session.Slot
	var mgr *world.Manager
	state, err := sessionRepo.Load(ctx, slot)
	switch {
	case err == nil:
		mgr, err = world.RestoreManager(state, itemTable, log)
		if err != nil {
			return fmt.Errorf("restore session %s: %w", slot, err)
		}
		log.Info("restored session", zap.String("slot", slot))
	case errors.Is(err, persist.ErrSessionNotFound):
		inv := cfg.Inventory
		mgr = world.NewManager(itemTable,
			inv.GroundWidth, inv.GroundHeight,
			inv.WorkspaceWidth, inv.WorkspaceHeight, log)
		log.Info("created new session", zap.String("slot", slot))
	default:
		return fmt.Errorf("load session %s: %w", slot, err)
	}

	console := &console{
		mgr:       mgr,
		crafting:  system.NewCraftSystem(mgr, recipeTable, log),
		organizer: system.NewGroundOrganizer(mgr, log),
		itemUse:   system.NewItemUseSystem(mgr, engine, log),
		log:       log,
	}

	save := func() error {
		snapshot, err := mgr.MarshalState()
		if err != nil {
			return err
		}
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer saveCancel()
		return sessionRepo.Save(saveCtx, slot, snapshot)
	}

	// 7. Run the console until EOF or a signal, autosaving on a ticker
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(cfg.Session.AutosaveInterval)
	defer ticker.Stop()

	log.Info("session ready", zap.String("slot", slot))
	for {
		select {
		case <-ticker.C:
			if err := save(); err != nil {
				log.Error("autosave failed", zap.Error(err))
			} else {
				log.Debug("autosaved session", zap.String("slot", slot))
			}
		case line, ok := <-lines:
			if !ok {
				if err := save(); err != nil {
					return fmt.Errorf("final save: %w", err)
				}
				return nil
			}
			if line == "save" {
				if err := save(); err != nil {
					fmt.Printf("error: %v\n", err)
				} else {
					fmt.Println("saved")
				}
				continue
			}
			console.handle(line)
		case s := <-sig:
			log.Info("shutting down", zap.String("signal", s.String()))
			if err := save(); err != nil {
				return fmt.Errorf("final save: %w", err)
			}
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
