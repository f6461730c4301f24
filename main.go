package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/customeros/metricsrelay/config"
	"github.com/customeros/metricsrelay/internal/database"
	"github.com/customeros/metricsrelay/internal/repository"
	"github.com/customeros/metricsrelay/internal/utils"
	"github.com/customeros/metricsrelay/server"
	"github.com/customeros/metricsrelay/services/sink"
)

func main() {
	app := &cli.App{
		Name:  "metricsrelay",
		Usage: "relays client analytics events to the log sinks and the analytics backend",
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the application server",
				Action: runServer,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the warehouse event table",
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}
	if cfg == nil {
		log.Fatalf("config is empty")
	}
	return cfg
}

func runServer(c *cli.Context) error {
	cfg := loadConfig()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Metrics relay starting up...")

	var warehouseDB *gorm.DB
	if utils.IsStringInSlice(sink.NameWarehouse, cfg.SinkConfig.Sinks) {
		db, err := database.InitWarehouseDatabase(cfg.WarehouseConfig)
		if err != nil {
			log.Fatalf("Warehouse database initialization failed: %v", err)
		}
		warehouseDB = db
	}

	srv, err := server.NewServer(context.Background(), cfg, warehouseDB)
	if err != nil {
		log.Fatalf("Server setup failed: %v", err)
	}

	if err = srv.Run(); err != nil {
		log.Fatalf("Server startup failed: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func runMigrate(c *cli.Context) error {
	cfg := loadConfig()

	warehouseDB, err := database.InitWarehouseDatabase(cfg.WarehouseConfig)
	if err != nil {
		log.Fatalf("Warehouse database initialization failed: %v", err)
	}

	if err = repository.MigrateWarehouseDB(cfg.WarehouseConfig, warehouseDB); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	log.Println("Database migration completed successfully")
	return nil
}
