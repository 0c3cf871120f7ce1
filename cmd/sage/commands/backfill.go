package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sage/pkg/embedding"
	sageredis "github.com/Ramsey-B/sage/pkg/redis"
)

// the lock is kept alive while the backfill runs and lapses soon after a crash
const backfillLockTTL = time.Minute

var (
	backfillBatchSize int
	backfillLimit     int
	backfillForce     bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed players whose identity text has no current embedding",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		if a.embedder == nil {
			return fmt.Errorf("no embedding service configured, set EMBEDDING_API_KEY or EMBEDDING_BASE_URL")
		}

		// one backfill at a time across hosts when redis is available
		if a.redis != nil {
			lock, err := a.redis.AcquireLock(ctx, "backfill", backfillLockTTL)
			if errors.Is(err, sageredis.ErrLockNotAcquired) {
				return fmt.Errorf("another backfill is already running")
			}
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					logger.WithError(err).Warn("Failed to release backfill lock")
				}
			}()

			var stop context.CancelFunc
			ctx, stop = lock.Hold(ctx)
			defer stop()
		}

		backfiller := embedding.NewBackfiller(a.players, a.embeddings, a.embedder, cfg.BackfillRequestsPerSec, logger)
		stats, err := backfiller.Run(ctx, embedding.BackfillOptions{
			BatchSize: backfillBatchSize,
			Limit:     backfillLimit,
			Force:     backfillForce,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

func init() {
	backfillCmd.Flags().IntVar(&backfillBatchSize, "batch-size", 100, "players fetched per page")
	backfillCmd.Flags().IntVar(&backfillLimit, "limit", 0, "stop after this many players, 0 for all")
	backfillCmd.Flags().BoolVar(&backfillForce, "force", false, "re-embed even when the identity text is unchanged")
}
