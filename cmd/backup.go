/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tgblog/apiserver/config"
	"github.com/tgblog/apiserver/internal/db"
	"github.com/tgblog/apiserver/internal/logutil"
	"github.com/tgblog/apiserver/internal/services"
	"github.com/tgblog/apiserver/internal/storage"
	"github.com/tgblog/apiserver/internal/store"
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a JSON snapshot of all posts to object storage",
	Long: `Writes backups/posts-<timestamp>.json to the bucket selected by
STORAGE_BACKEND (minio, gcs or s3). Usage:

	blogapi backup
	blogapi backup list
	blogapi backup show <key>
	blogapi backup prune --keep 7
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logutil.New(cfg.Log.Level, cfg.Log.Format)
		ctx := cmd.Context()

		svc, closeDB, err := openBackupService(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		key, snapshot, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info().Str("key", key).Int("posts", snapshot.Count).Msg("backup written")
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List existing backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		svc, closeDB, err := openBackupService(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		keys, err := svc.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), key)
		}
		return nil
	},
}

var backupShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print the posts stored in a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		svc, closeDB, err := openBackupService(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		snapshot, err := svc.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "taken at %s, %d posts\n", snapshot.TakenAt.Format(time.RFC3339), snapshot.Count)
		for _, post := range snapshot.Posts {
			fmt.Fprintf(out, "%d\t%s\t%s\n", post.ID, post.CreatedAt.Format(time.RFC3339), post.Title)
		}
		return nil
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, err := cmd.Flags().GetInt("keep")
		if err != nil {
			return err
		}
		cfg := config.LoadConfig()
		logger := logutil.New(cfg.Log.Level, cfg.Log.Format)

		svc, closeDB, err := openBackupService(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		removed, err := svc.Prune(cmd.Context(), keep)
		for _, key := range removed {
			logger.Info().Str("key", key).Msg("backup deleted")
		}
		return err
	},
}

func openBackupService(cmd *cobra.Command, cfg config.Config) (*services.BackupService, func(), error) {
	ctx := cmd.Context()

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("ensure bucket %s: %w", objects.Bucket(), err)
	}

	dialect, err := db.Driver(cfg)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := services.NewBackupService(store.NewPostRepository(conn, dialect), objects)
	return svc, func() { _ = conn.Close() }, nil
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupShowCmd)
	backupCmd.AddCommand(backupPruneCmd)

	backupPruneCmd.Flags().Int("keep", 7, "number of newest backups to keep")
}
