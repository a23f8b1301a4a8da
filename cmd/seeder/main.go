package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/locvowork/tablereport/internal/bootstrap"
	"github.com/locvowork/tablereport/internal/database"
	"github.com/locvowork/tablereport/internal/logger"
)

func main() {
	// Define flags
	action := flag.String("action", "seed", "Action to perform: seed, clear")
	target := flag.String("target", database.TargetAll, "Store to seed: postgres, elastic, datastore, all")
	teachers := flag.Int("teachers", 50, "Number of teachers to generate")
	seed := flag.Int64("seed", 1, "Random seed of the generated dataset")
	yes := flag.Bool("yes", false, "Clear without asking for confirmation")

	flag.Parse()

	ctx := context.Background()

	fmt.Println("🚀 School Data Seeder")
	fmt.Println(strings.Repeat("=", 50))

	// Connect to the configured stores
	fmt.Println("📡 Connecting to stores...")
	app := bootstrap.NewApp()
	if err := app.Setup(ctx); err != nil {
		logger.ErrorLog(ctx, "Failed to initialize application", err)
		log.Fatal(err)
	}
	defer app.Close()

	if app.DB == nil && app.ES == nil && app.DS == nil {
		log.Fatal("No store configured: set DB_ENABLED, ES_URL or DATASTORE_PROJECT_ID")
	}

	seeder := database.NewDataSeeder(app.DB, app.ES, app.DS)

	// Execute action
	switch *action {
	case "seed":
		data := database.GenerateSchool(*teachers, *seed)
		fmt.Printf("📊 Generated %d teachers (seed %d)\n", len(data), *seed)
		if err := seeder.Seed(ctx, *target, data); err != nil {
			log.Fatalf("❌ Seeding failed: %v", err)
		}

	case "clear":
		if !*yes && !confirm() {
			fmt.Println("Cancelled.")
			return
		}
		if err := seeder.Clear(ctx); err != nil {
			log.Fatalf("❌ Clear failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown action: %s\n", *action)
		flag.PrintDefaults()
		return
	}

	fmt.Println("\n✅ Done!")
}

func confirm() bool {
	fmt.Println("⚠️  This will delete all seeded data!")
	fmt.Print("Continue? (yes/no): ")

	var response string
	fmt.Scanln(&response)
	return response == "yes"
}
