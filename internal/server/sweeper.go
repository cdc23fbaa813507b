package server

import (
	"context"
	"log"
	"time"
)

// SweeperConfig holds configuration for the expiration sweeper.
type SweeperConfig struct {
	Interval time.Duration
	Registry *Registry
	Store    BlobStore
	Audit    *AuditLog
}

// StartSweeper runs the background loop that reclaims expired rooms. It runs
// one pass immediately, then one per interval, and only returns when the
// context is cancelled. Request handling never waits on it: the registry
// lock is held only for snapshots and removals, never across storage I/O.
func StartSweeper(ctx context.Context, cfg SweeperConfig) {
	log.Printf("service=sweeper msg=%q interval=%s", "starting", cfg.Interval)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	runSweep(ctx, cfg)

	for {
		select {
		case <-ctx.Done():
			log.Printf("service=sweeper msg=%q", "shutting_down")
			return
		case <-ticker.C:
			runSweep(ctx, cfg)
		}
	}
}

// runSweep performs a single pass. For each expired room the order is fixed:
// delete every recorded blob, purge the namespace, remove the registry
// entry, then purge once more in case an upload raced past the first purge.
// Storage failures are logged and absorbed; the room leaves the registry
// regardless, and one room's failure never blocks the rest of the cycle.
func runSweep(ctx context.Context, cfg SweeperConfig) int {
	start := time.Now()
	expired := cfg.Registry.ExpiredRooms(start)
	if len(expired) == 0 {
		GetMetrics().RecordSweep(0)
		return 0
	}

	swept := 0
	for _, r := range expired {
		for _, name := range r.Files {
			if err := cfg.Store.Remove(ctx, r.ID, name); err != nil {
				log.Printf("service=sweeper msg=%q room=%s file=%s err=%v",
					"blob_delete_failed", r.ID, name, err)
				GetMetrics().RecordSweepError()
			}
		}

		if err := cfg.Store.RemoveNamespace(ctx, r.ID); err != nil {
			log.Printf("service=sweeper msg=%q room=%s err=%v",
				"namespace_purge_failed", r.ID, err)
			GetMetrics().RecordSweepError()
		}

		if _, ok := cfg.Registry.Remove(r.ID); !ok {
			// Already gone; nothing else to do for this room.
			continue
		}

		// An upload may have slipped in between the purge and the registry
		// removal. The purge is idempotent, so run it once more.
		if err := cfg.Store.RemoveNamespace(ctx, r.ID); err != nil {
			log.Printf("service=sweeper msg=%q room=%s err=%v",
				"namespace_repurge_failed", r.ID, err)
			GetMetrics().RecordSweepError()
		}

		cfg.Audit.Record(ctx, AuditRoomSwept, r.ID, map[string]any{"files": len(r.Files)})
		log.Printf("service=sweeper msg=%q room=%s files=%d", "room_swept", r.ID, len(r.Files))
		swept++
	}

	GetMetrics().RecordSweep(swept)
	log.Printf("service=sweeper msg=%q swept=%d duration_ms=%d",
		"sweep_complete", swept, time.Since(start).Milliseconds())
	return swept
}
