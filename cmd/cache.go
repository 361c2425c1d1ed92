package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/store"
)

var cachePurgeDays int

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the dossier cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached dossiers older than the given age",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cache"); err != nil {
			return err
		}
		if cachePurgeDays < 0 {
			return eris.New("--older-than-days must not be negative")
		}

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		cutoff := time.Now().Add(-time.Duration(cachePurgeDays) * 24 * time.Hour)
		n, err := st.Purge(ctx, cutoff)
		if err != nil {
			return eris.Wrap(err, "purge cache")
		}

		zap.L().Info("cache purged", zap.Int("deleted", n), zap.Time("cutoff", cutoff))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d cached dossiers\n", n)
		return err
	},
}

func init() {
	cachePurgeCmd.Flags().IntVar(&cachePurgeDays, "older-than-days", model.DefaultTTLDays, "delete entries cached more than this many days ago")
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
