// Package maintenance provides tools to clean and refresh the server history.
package maintenance

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/woozymasta/samplauncher/internal/config"
	"github.com/woozymasta/samplauncher/internal/game"
	"github.com/woozymasta/samplauncher/internal/models"
	"github.com/woozymasta/samplauncher/internal/storage"
)

const workers = 10

// Result counts what a re-check did.
type Result struct {
	Updated int64
	Deleted int64
}

// Run executes the maintenance task selected in cfg.
// Returns true if a task was executed (indicating the program should exit).
func Run(cfg *config.Config, store *storage.Repository) bool {
	if cfg.Storage.PruneEmpty {
		log.Info().Msg("Pruning servers without hostname...")

		count, err := store.DeleteEmptyServers()
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune servers")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}

		return true
	}

	if !cfg.Storage.CheckAll {
		return false
	}

	servers, err := store.GetServersSubset(false)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		return true
	}

	if len(servers) == 0 {
		log.Info().Msg("No servers found for maintenance")
		return true
	}

	querier, err := game.NewQuerier(cfg.Query)
	if err != nil {
		log.Error().Err(err).Msg("Invalid query options")
		return true
	}

	log.Info().Int("count", len(servers)).Int("workers", workers).Msg("Re-checking stored servers...")
	res := Recheck(servers, store, querier)
	log.Info().
		Int64("updated", res.Updated).
		Int64("deleted", res.Deleted).
		Msg("Maintenance task completed")

	return true
}

// Recheck queries every server, updating the ones that answer and deleting the rest.
func Recheck(servers []models.ServerRecord, store *storage.Repository, querier *game.Querier) Result {
	var updated, deleted atomic.Int64

	p := pool.New().WithMaxGoroutines(workers)
	for _, server := range servers {
		p.Go(func() {
			if processServer(server, store, querier) {
				updated.Add(1)
			} else {
				deleted.Add(1)
			}
		})
	}
	p.Wait()

	return Result{Updated: updated.Load(), Deleted: deleted.Load()}
}

// processServer re-queries one server. It returns true if the server was kept.
func processServer(server models.ServerRecord, store *storage.Repository, querier *game.Querier) bool {
	logCtx := log.With().
		Str("ip", server.IP).
		Int("port", server.Port).
		Logger()

	if server.Port <= 0 || server.Port > 65535 {
		logCtx.Debug().Msg("Invalid port, deleting server")
		if err := store.DeleteServer(server.IP, server.Port); err != nil {
			logCtx.Error().Err(err).Msg("Failed to delete invalid server")
		}
		return false
	}

	info := querier.GetServerInfo(server.IP, server.Port)
	if info == nil {
		logCtx.Debug().Msg("Server unreachable, deleting server")
		if err := store.DeleteServer(server.IP, server.Port); err != nil {
			logCtx.Error().Err(err).Msg("Failed to delete unreachable server")
		}
		return false
	}

	record := models.NewServerRecord(*info, server.CountryCode, time.Now())
	if err := store.UpsertServer(record); err != nil {
		logCtx.Error().Err(err).Msg("Failed to update server")
	} else {
		logCtx.Trace().Msg("Server updated successfully")
	}

	return true
}
