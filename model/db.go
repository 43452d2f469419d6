package model

import (
	"fmt"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the main entry point of the model. All persistence goes through it.
type Store struct {
	db     *gorm.DB
	Config *Config
}

type Config struct {
	Basedir                  string
	CookieSecret             string
	MailAPIKey               string
	MailSecret               string
	Mode                     string
	Port                     int
	PublishingServerAddress  string
	PublishingServerUsername string
	RegistrationAllowed      bool
	Servers                  map[string]server
	UploadDir                string
	XMLDir                   string
}

type server struct {
	Database   string
	DBName     string
	DBUser     string
	DBPassword string
	DBHost     string
	DBLogger   string
}

// gormConfigFor builds the GORM config including the SQL logger verbosity.
func gormConfigFor(cfg *Config, svr server) *gorm.Config {
	gormConfig := &gorm.Config{}
	switch svr.DBLogger {
	case "info":
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	case "silent":
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	default:
		if cfg.Mode == "development" {
			gormConfig.Logger = logger.Default.LogMode(logger.Info)
		} else {
			gormConfig.Logger = logger.Default.LogMode(logger.Silent)
		}
	}
	return gormConfig
}

func (s *Store) autoMigrate() error {
	var err error
	if err = s.db.AutoMigrate(&Client{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&Product{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&Proforma{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&ProformaItem{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&Invoice{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&InvoiceItem{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&Payment{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&DeliveryNote{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&DeliveryItem{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&DeletedNumber{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&PDFTemplate{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&Settings{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&User{}); err != nil {
		return err
	}
	s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_deleted_numbers_owner_doc_number
         ON deleted_numbers(owner_id, doc_type, number)`)
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_payments_invoice_date
         ON payments(invoice_id, date)`)
	return nil
}

// InitDatabase opens the configured database and migrates the schema.
func InitDatabase(cfg *Config) (*Store, error) {
	var err error

	s := &Store{Config: cfg}
	svr := cfg.Servers[cfg.Mode]

	switch svr.Database {
	case "sqlite", "sqlite3":
		filename := filepath.Join("db", svr.DBName)
		fmt.Println("Use server sqlite and database", filename)
		s.db, err = gorm.Open(sqlite.Open(filename), gormConfigFor(cfg, svr))
		if err != nil {
			return nil, err
		}
	case "postgresql":
		fmt.Println("Use server postgresql and database", svr.DBName)
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable TimeZone=UTC",
			svr.DBHost, svr.DBUser, svr.DBPassword, svr.DBName)
		s.db, err = gorm.Open(postgres.Open(dsn), gormConfigFor(cfg, svr))
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown database %q", svr.Database)
	}
	if err = s.autoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenMemoryStore opens an in-memory SQLite store, used by the fixtures package.
func OpenMemoryStore(cfg *Config) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, Config: cfg}
	if err = s.autoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}
