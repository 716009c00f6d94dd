package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/safar/fish-segments/internal/config"
	"github.com/safar/fish-segments/internal/logging"
)

func main() {
	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	if len(os.Args) < 2 {
		boot.Fatal().Msg("usage: go run scripts/run_migrations.go [up|down] [--no-seed]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		boot.Fatal().Str("direction", direction).Msg("direction must be 'up' or 'down'")
	}
	skipSeed := len(os.Args) > 2 && os.Args[2] == "--no-seed"

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Log)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	files, err := migrationFiles("migrations", direction, skipSeed)
	if err != nil {
		log.Fatal().Err(err).Msg("read migration directory")
	}

	for _, filePath := range files {
		content, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatal().Err(err).Str("file", filePath).Msg("read migration file")
		}

		log.Info().Str("file", filepath.Base(filePath)).Msg("running migration")
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatal().Err(err).Str("file", filePath).Msg("execute migration")
		}
	}

	log.Info().Int("count", len(files)).Str("direction", direction).Msg("migrations complete")
}

// migrationFiles lists dir/*.<direction>.sql in apply order. Seed files
// contain "_seed_" in their name.
func migrationFiles(dir, direction string, skipSeed bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fmt.Sprintf(".%s.sql", direction)) {
			continue
		}
		if skipSeed && strings.Contains(name, "_seed_") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}

	sort.Strings(files)
	if direction == "down" {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}
	return files, nil
}
