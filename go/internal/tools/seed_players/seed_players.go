// Command seed_players loads the players table from a JSON dump.
// Rows are upserted by external ID, so rerunning the tool against a
// newer dump refreshes names, teams and ADP in place.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openleague/draftroom/go/internal/dbconfig"
	"github.com/openleague/draftroom/go/internal/players"
)

// PlayerSeed mirrors one entry of the players JSON dump.
type PlayerSeed struct {
	ExternalID string   `json:"external_id"`
	FullName   string   `json:"full_name"`
	Class      string   `json:"class"`
	Position   string   `json:"position"`
	Team       *string  `json:"team"`
	YearsExp   *int     `json:"years_exp"`
	ADP        *float64 `json:"adp"`
	Active     *bool    `json:"active"`
}

const batchSize = 500

func main() {
	file := flag.String("file", "go/internal/assets/players.json", "path to the players JSON dump")
	flag.Parse()

	ctx := context.Background()

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *file, err)
		os.Exit(1)
	}
	var seeds []PlayerSeed
	if err := json.Unmarshal(data, &seeds); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal players: %v\n", err)
		os.Exit(1)
	}

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := players.NewStore(pool)

	total, upserted, errs := len(seeds), 0, 0
	for start := 0; start < total; start += batchSize {
		end := min(start+batchSize, total)
		reqs := make([]players.UpsertPlayerRequest, 0, end-start)
		for _, s := range seeds[start:end] {
			// Dumps that omit the flag mean the player is draftable.
			active := true
			if s.Active != nil {
				active = *s.Active
			}
			reqs = append(reqs, players.UpsertPlayerRequest{
				ExternalID: s.ExternalID,
				FullName:   s.FullName,
				Class:      s.Class,
				Position:   s.Position,
				Team:       s.Team,
				YearsExp:   s.YearsExp,
				ADP:        s.ADP,
				Active:     active,
			})
		}
		if err := store.UpsertPlayers(ctx, reqs); err != nil {
			// Each batch is one transaction, so none of its rows landed.
			fmt.Fprintf(os.Stderr, "upsert batch at %d: %v\n", start, err)
			errs += len(reqs)
			continue
		}
		upserted += len(reqs)
	}

	fmt.Printf("Players seed: total=%d upserted=%d errors=%d\n", total, upserted, errs)
	if errs > 0 {
		os.Exit(1)
	}
}
