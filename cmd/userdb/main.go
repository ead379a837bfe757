// Command userdb serves the user store over HTTP.
//
//	userdb -config userdb.yaml
//
// Without a config file it listens on :3001 and connects to MySQL on
// localhost. DATABASE_DRIVER and DATABASE_URL select another database:
//
//	DATABASE_DRIVER=postgres DATABASE_URL="postgres://..." userdb
//	DATABASE_DRIVER=sqlite DATABASE_URL=users.db userdb
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/userdb/config"
	"github.com/syssam/userdb/contrib/lrucache"
	"github.com/syssam/userdb/dialect/sql"
	"github.com/syssam/userdb/server"
	"github.com/syssam/userdb/store"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	addr := flag.String("addr", "", "listen address, overrides the config")
	flag.Parse()

	if err := run(*configPath, *addr); err != nil {
		fmt.Fprintln(os.Stderr, "userdb:", err)
		os.Exit(1)
	}
}

func run(configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Level())
	log := cfg.NewLogger(os.Stderr, level)
	slog.SetDefault(log)

	drv, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer drv.Close()
	db := drv.DB()
	if n := cfg.Database.MaxOpenConns; n > 0 {
		db.SetMaxOpenConns(n)
	}
	if n := cfg.Database.MaxIdleConns; n > 0 {
		db.SetMaxIdleConns(n)
	}
	if d := cfg.Database.ConnMaxLifetime.Std(); d > 0 {
		db.SetConnMaxLifetime(d)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info("database connected", "driver", cfg.Database.Driver)

	debug := sql.NewDebugDriver(drv, sql.DebugWithLogger(log))
	debug.SetEnabled(cfg.Debug)
	stats := sql.NewStatsDriver(debug,
		sql.WithSlowThreshold(cfg.Database.SlowQueryThreshold.Std()),
		sql.WithSlowQueryLog(log),
	)

	opts := []store.Option{store.WithLogger(log)}
	if cfg.Cache.Size > 0 {
		opts = append(opts,
			store.WithCache(lrucache.New(cfg.Cache.Size)),
			store.WithCacheTTL(cfg.Cache.TTL.Std()),
		)
	}
	st := store.New(stats, opts...)

	if configPath != "" {
		w, err := config.Watch(configPath, log, func(c *config.Config) {
			level.Set(c.Level())
			debug.SetEnabled(c.Debug)
			stats.SetSlowThreshold(c.Database.SlowQueryThreshold.Std())
		})
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			defer w.Close()
		}
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.New(st,
			server.WithLogger(log),
			server.WithStats(stats.QueryStats().Stats),
			server.WithCORSOrigins(cfg.Server.CORSOrigins...),
		),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
