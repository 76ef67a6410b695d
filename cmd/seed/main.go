// Command seed fills the configured database with demo data.
package main

import (
	"flag"
	"log"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.Users, "users", opts.Users, "Number of users to create")
	flag.IntVar(&opts.MessagesPerUser, "messages", opts.MessagesPerUser, "Messages per user")
	flag.IntVar(&opts.FollowsPerUser, "follows", opts.FollowsPerUser, "Followees per user")
	flag.IntVar(&opts.LikesPerUser, "likes", opts.LikesPerUser, "Likes per user")
	flag.BoolVar(&opts.Clean, "clean", opts.Clean, "Delete existing data first")
	flag.Int64Var(&opts.RandomSeed, "seed", 0, "Random seed (0 for time-based)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}
	middleware.InitLogger(cfg.Env, cfg.LogLevel)
	opts.BcryptCost = cfg.BcryptCost

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.NewSeeder(db, opts).Run()
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d messages, %d follows, %d likes",
		len(res.Users), res.Messages, res.Follows, res.Likes)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
