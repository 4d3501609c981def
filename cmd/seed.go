package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/washcorner-notify/internal/db"
	"github.com/jmehdipour/washcorner-notify/internal/logger"
	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/settings"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo customers, services and transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if err := seedCatalog(ctx, sqlDB); err != nil {
			return err
		}

		// 3) make sure the settings file exists with default templates
		store := settings.NewFileStore(cfg.Notify.SettingsPath)
		if _, err := store.Load(ctx); err != nil {
			return fmt.Errorf("init settings: %w", err)
		}

		logger.Log.Info("seed completed", zap.String("settings_path", store.Path()))
		return nil
	},
}

type demoTransaction struct {
	plate    string
	status   model.StatusKind
	services []string
}

var (
	demoCustomers = []model.Customer{
		{Name: "Budi Santoso", Phone: "081234567890", LicensePlate: "B 1234 ABC"},
		{Name: "Siti Rahma", Phone: "+62 813-1111-2222", LicensePlate: "D 4321 XY"},
		{Name: "Andi Wijaya", Phone: "", LicensePlate: "F 77 ZZ"},
	}
	demoServices = []model.Service{
		{Name: "Cuci Mobil", Price: 50000},
		{Name: "Cuci Motor", Price: 20000},
		{Name: "Poles Body", Price: 150000},
		{Name: "Vacuum Interior", Price: 35000},
	}
	demoTransactions = []demoTransaction{
		{plate: "B 1234 ABC", status: model.StatusPending, services: []string{"Cuci Mobil", "Vacuum Interior"}},
		{plate: "D 4321 XY", status: model.StatusInProgress, services: []string{"Cuci Mobil", "Poles Body"}},
		{plate: "F 77 ZZ", status: model.StatusPending, services: []string{"Cuci Motor"}},
	}
)

// seedCatalog upserts customers by license plate and services by name, then
// adds one transaction per demo customer that has none yet.
func seedCatalog(ctx context.Context, dbx *sqlx.DB) error {
	tx, err := dbx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, c := range demoCustomers {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO customers (name, phone, license_plate, created_at, updated_at)
VALUES (?, NULLIF(?, ''), ?, NOW(), NOW())
ON DUPLICATE KEY UPDATE
    name       = VALUES(name),
    phone      = VALUES(phone),
    updated_at = VALUES(updated_at)
`, c.Name, c.Phone, c.LicensePlate); err != nil {
			return fmt.Errorf("insert customer %q: %w", c.Name, err)
		}
	}

	for _, s := range demoServices {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO services (name, price) VALUES (?, ?)
ON DUPLICATE KEY UPDATE price = VALUES(price)
`, s.Name, s.Price); err != nil {
			return fmt.Errorf("insert service %q: %w", s.Name, err)
		}
	}

	for _, dt := range demoTransactions {
		var customerID int64
		if err := tx.GetContext(ctx, &customerID, `SELECT id FROM customers WHERE license_plate = ?`, dt.plate); err != nil {
			return fmt.Errorf("lookup customer %q: %w", dt.plate, err)
		}

		var existing int
		if err := tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM transactions WHERE customer_id = ?`, customerID); err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if existing > 0 {
			continue
		}

		res, err := tx.ExecContext(ctx, `
INSERT INTO transactions (customer_id, status, created_at, updated_at) VALUES (?, ?, NOW(), NOW())
`, customerID, dt.status.String())
		if err != nil {
			return fmt.Errorf("insert transaction for %q: %w", dt.plate, err)
		}
		txID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("transaction id: %w", err)
		}

		for _, name := range dt.services {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO transaction_items (transaction_id, service_id)
SELECT ?, id FROM services WHERE name = ?
`, txID, name); err != nil {
				return fmt.Errorf("insert item %q: %w", name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}
