// Command seed loads the demo catalog: offerings, their cohorts and launch coupons.
//
//	go run ./cmd/seed            # everything
//	go run ./cmd/seed -only=coupons
package main

import (
	"flag"
	"log"

	"github.com/code-centre/tech-centre-api/config"
	"github.com/code-centre/tech-centre-api/database"
)

func main() {
	only := flag.String("only", "", "seed a single table: offerings, cohorts or coupons")
	flag.Parse()

	if err := config.LoadENV(); err != nil {
		log.Println("[SEED] no .env file, reading the process environment")
	}
	env, err := config.Get()
	if err != nil {
		log.Fatalf("[SEED] invalid configuration: %v", err)
	}

	store, err := database.StartGORM(env)
	if err != nil {
		log.Fatalf("[SEED] %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("[SEED] %v", err)
	}

	seeder := database.NewSeeder(store.GetDB())
	switch *only {
	case "":
		err = seeder.SeedAll()
	case "offerings":
		err = seeder.SeedOfferings()
	case "cohorts":
		err = seeder.SeedCohorts()
	case "coupons":
		err = seeder.SeedCoupons()
	default:
		log.Fatalf("[SEED] unknown table %q", *only)
	}
	if err != nil {
		log.Fatalf("[SEED] failed: %v", err)
	}
	log.Printf("[SEED] %s database %s is ready", env.GO_ENV, env.DB_NAME)
}
