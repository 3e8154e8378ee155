// Package app wires the data plane components together.
package app

import (
	"context"
	"log"
	"net/http"
	"os"

	"calldash/config"
	"calldash/exclusions"
	"calldash/internal/httpapi"
	"calldash/internal/refresh"
	"calldash/internal/watch"
	"calldash/metrics"
	"calldash/source"
)

// App owns the refresh runner, the exclusion watcher, and the HTTP surface.
type App struct {
	cfg     config.Config
	runner  *refresh.Runner
	watcher *watch.Watcher
	mux     *http.ServeMux
}

func New(cfg config.Config) *App {
	m := metrics.New()

	var fetcher refresh.Fetcher
	if cfg.HasSheetSource() {
		client := &http.Client{Timeout: cfg.HTTPTimeout()}
		fetcher = source.NewSheetClient(client, cfg.SheetID, cfg.SheetTab, cfg.SheetAPIKey)
	} else {
		log.Println("app: no sheet source configured, serving uploads only")
	}

	loadExclusions := func() exclusions.Table { return exclusions.Load(cfg.ExclusionPath) }
	runner := refresh.NewRunner(fetcher, loadExclusions, cfg.RefreshInterval(), m)
	watcher := watch.New(cfg.ExclusionPath, cfg.EnableWatcher, runner)

	mux := http.NewServeMux()
	httpapi.NewRouter(runner, m).Register(mux)
	if info, err := os.Stat(cfg.DashboardDir); err == nil && info.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir(cfg.DashboardDir)))
	}

	return &App{cfg: cfg, runner: runner, watcher: watcher, mux: mux}
}

// Run starts the refresh loop, the watcher, and the HTTP server, and blocks
// until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.runner.Start(ctx)
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	return srv.ListenAndServe()
}

func (a *App) Runner() *refresh.Runner { return a.runner }
func (a *App) Mux() *http.ServeMux     { return a.mux }
