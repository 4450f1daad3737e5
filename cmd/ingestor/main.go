package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/samirrijal/voltroute/internal/adapters/postgres"
	"github.com/samirrijal/voltroute/internal/adapters/stationindex"
	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/pkg/config"
)

const batchSize = 500

func main() {
	cfg, err := config.Load("voltroute-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	source := cfg.Catalogue.File
	if len(os.Args) > 1 {
		source = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	log.Printf("VoltRoute station ingestor: loading %s", source)

	zr, err := openArchive(source)
	if err != nil {
		log.Fatalf("open %s: %v", source, err)
	}
	stations, err := stationindex.ReadZip(zr)
	if err != nil {
		log.Fatalf("parse stations: %v", err)
	}
	log.Printf("parsed %d stations", len(stations))

	repo := postgres.NewStationRepo(db)
	if err := ingest(ctx, repo, stations); err != nil {
		log.Fatalf("ingest: %v", err)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		log.Fatalf("count: %v", err)
	}
	log.Printf("ingestion complete: %d stations stored", n)
}

// openArchive reads a local zip, or downloads one when source is a URL.
func openArchive(source string) (*zip.Reader, error) {
	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := &http.Client{Timeout: 120 * time.Second}
		resp, err := client.Get(source)
		if err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, source)
		}
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
	} else {
		var err error
		if body, err = os.ReadFile(source); err != nil {
			return nil, err
		}
	}
	return zip.NewReader(bytes.NewReader(body), int64(len(body)))
}

type stationWriter interface {
	UpsertBatch(ctx context.Context, stations []domain.Station) error
}

func ingest(ctx context.Context, w stationWriter, stations []domain.Station) error {
	for start := 0; start < len(stations); start += batchSize {
		end := min(start+batchSize, len(stations))
		if err := w.UpsertBatch(ctx, stations[start:end]); err != nil {
			return fmt.Errorf("rows %d-%d: %w", start, end, err)
		}
		log.Printf("  upserted %d/%d", end, len(stations))
	}
	return nil
}
