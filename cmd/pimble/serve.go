package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joeleaver/pimble/application/services"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/infrastructure/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const watchReconcileInterval = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := newContainer("")
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		container.Cache.StartCleanup(time.Minute)

		if container.Watcher != nil {
			watchCtx, cancelWatch := context.WithCancel(ctx)
			defer cancelWatch()
			go reconcileWatches(watchCtx, container.Watcher, container.Manager, container.Logger)
		}

		errCh := make(chan error, 1)
		go func() { errCh <- container.Server.Start() }()

		select {
		case err := <-errCh:
			container.Shutdown(context.Background())
			return err
		case <-ctx.Done():
		}

		container.Logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err = container.Server.Shutdown(shutdownCtx)
		container.Shutdown(shutdownCtx)
		return err
	},
}

// reconcileWatches keeps the filesystem watcher aligned with the set of
// open stores. Stores open and close through API calls the watcher never
// sees, so it polls the manager instead of hooking every transition.
func reconcileWatches(ctx context.Context, w *watcher.StoreWatcher, manager *services.StoreManager, logger *zap.Logger) {
	watched := make(map[valueobjects.StoreID]string)

	ticker := time.NewTicker(watchReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		open := make(map[valueobjects.StoreID]string)
		for _, store := range manager.ListStores(ctx) {
			loc := store.Location()
			if loc.Kind != entities.LocationLocal {
				continue
			}
			open[store.ID()] = filepath.Clean(loc.Path)
		}

		for id, dir := range open {
			if _, ok := watched[id]; ok {
				continue
			}
			if err := w.WatchStore(id, dir); err != nil {
				logger.Warn("Failed to watch store directory",
					zap.String("storeID", id.String()), zap.String("dir", dir), zap.Error(err))
				continue
			}
			watched[id] = dir
		}
		for id, dir := range watched {
			if _, ok := open[id]; ok {
				continue
			}
			w.UnwatchStore(dir)
			delete(watched, id)
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
