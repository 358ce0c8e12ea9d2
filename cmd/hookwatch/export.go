package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/hookwatch/internal/archive"
	"github.com/alfredjeanlab/hookwatch/internal/config"
	"github.com/alfredjeanlab/hookwatch/internal/logging"
	"github.com/alfredjeanlab/hookwatch/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export log entries as JSONL",
	Long: `Export log entries with ID greater than --after as JSONL, reading the
store configured by the HOOKWATCH_* environment. Without --out or --s3 the
export is written uncompressed to stdout; otherwise it is gzipped and stored
under the same object name the archive scheduler would use.`,
	GroupID: "services",
	// Override PersistentPreRunE so no API client is created.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Args:              cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		after, _ := cmd.Flags().GetInt64("after")
		limit, _ := cmd.Flags().GetInt("limit")
		outDir, _ := cmd.Flags().GetString("out")
		toS3, _ := cmd.Flags().GetBool("s3")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if _, err := logging.Init(cfg.Log); err != nil {
			return err
		}
		defer logging.Sync()

		ctx := context.Background()
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if outDir == "" && !toS3 {
			res, err := archive.ExportJSONL(ctx, st, after, store.DefaultExportBatch, limit, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "exported %d entries (last id %d)\n", res.Count, res.LastID)
			return nil
		}

		var buf bytes.Buffer
		res, err := archive.ExportJSONL(ctx, st, after, store.DefaultExportBatch, limit, &buf)
		if err != nil {
			return err
		}
		if res.Count == 0 {
			fmt.Fprintf(os.Stderr, "no entries after id %d\n", after)
			return nil
		}
		data, err := archive.Gzip(buf.Bytes())
		if err != nil {
			return err
		}

		var dests []archive.Destination
		if outDir != "" {
			dests = append(dests, archive.DirDestination{Dir: outDir})
		}
		if toS3 {
			if cfg.ArchiveS3Bucket == "" {
				return fmt.Errorf("--s3 requires HOOKWATCH_ARCHIVE_S3_BUCKET")
			}
			s3Dest, err := archive.NewS3Destination(ctx, cfg.ArchiveS3Bucket, cfg.ArchiveS3Prefix, cfg.ArchiveS3Region, cfg.ArchiveS3Endpoint)
			if err != nil {
				return err
			}
			dests = append(dests, s3Dest)
		}

		name := archive.ObjectName(res)
		for _, d := range dests {
			if err := d.Write(ctx, name, data); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
		}
		fmt.Fprintf(os.Stderr, "exported %d entries to %s (%d bytes)\n", res.Count, name, len(data))
		return nil
	},
}

func init() {
	exportCmd.Flags().Int64("after", 0, "only export entries with an ID greater than this")
	exportCmd.Flags().Int("limit", 0, "maximum number of entries (0 = all)")
	exportCmd.Flags().String("out", "", "write a gzipped archive object into this directory")
	exportCmd.Flags().Bool("s3", false, "upload a gzipped archive object to the configured S3 bucket")
}
