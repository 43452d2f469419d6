package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/fatoura-app/fatoura/controller"
	"github.com/fatoura-app/fatoura/model"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pelletier/go-toml/v2"
)

func runMigrations(cfg *model.Config) error {
	m, err := migrate.New("file://"+migrationsDir(), migrateDSN(cfg))
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func dothings() error {
	doMigrate := flag.Bool("migrate", false, "run SQL migrations and exit")
	flag.Parse()

	data, err := os.ReadFile("config.toml")
	if err != nil {
		return err
	}
	cfg := &model.Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if *doMigrate {
		return runMigrations(cfg)
	}
	store, err := model.InitDatabase(cfg)
	if err != nil {
		return err
	}
	return controller.NewController(store)
}

func main() {
	if err := dothings(); err != nil {
		log.Fatal(err)
	}
}
