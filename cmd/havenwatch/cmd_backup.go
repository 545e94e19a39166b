package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/HerbHall/havenwatch/internal/backup"
	"github.com/HerbHall/havenwatch/internal/config"
)

func runBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	out := fs.String("out", "", "archive path (default havenwatch-backup-<timestamp>.tar.gz)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	archive := *out
	if archive == "" {
		archive = fmt.Sprintf("havenwatch-backup-%s.tar.gz", time.Now().UTC().Format("20060102-150405"))
	}

	if err := backup.Backup(context.Background(), cfg.Database.Path, cfg.File, archive); err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("backup written to %s\n", archive)
}

func runRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	in := fs.String("in", "", "archive to restore")
	dir := fs.String("dir", ".", "target directory")
	force := fs.Bool("force", false, "overwrite existing files")
	_ = fs.Parse(args)

	if *in == "" {
		fmt.Fprintln(os.Stderr, "restore: -in is required")
		os.Exit(2)
	}
	m, err := backup.Restore(context.Background(), *in, *dir, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "restore failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("restored %s (version %s, taken %s) into %s\n",
		m.Database, m.Version, m.CreatedAt.Format(time.RFC3339), *dir)
}
