// Command store-migrate applies the embedded goose migrations to the
// store database.
//
//	store-migrate [up|down|status|version|reset]
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/migrations"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

func main() {
	utils.InitLogger("store-migrate")

	timeout := flag.Duration("timeout", 5*time.Minute, "overall migration timeout")
	flag.Parse()
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	dbURL, err := databaseURL()
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to resolve DB_URL")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Unable to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		utils.Logger.WithError(err).Fatal("Unable to ping database")
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(utils.Logger)
	if err := goose.SetDialect("postgres"); err != nil {
		utils.Logger.WithError(err).Fatal("Unsupported goose dialect")
	}

	if err := run(ctx, db, command); err != nil {
		utils.Logger.WithError(err).Fatalf("Migration command %q failed", command)
	}
	utils.Logger.Infof("Migration command %q finished", command)
}

func run(ctx context.Context, db *sql.DB, command string) error {
	switch command {
	case "up":
		return goose.UpContext(ctx, db, ".")
	case "down":
		return goose.DownContext(ctx, db, ".")
	case "reset":
		return goose.ResetContext(ctx, db, ".")
	case "status":
		return goose.StatusContext(ctx, db, ".")
	case "version":
		return goose.VersionContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// databaseURL reads DB_URL the same way the service does: Bitwarden when
// BWS_ACCESS_TOKEN is set, the environment otherwise.
func databaseURL() (string, error) {
	env := os.Getenv("ENV")
	if env == "" {
		return "", fmt.Errorf("ENV env var is missing")
	}
	secrets, err := utils.NewSecretSource(
		fmt.Sprintf("shared-%s", env),
		fmt.Sprintf("%s-%s", config.AppName, env),
	)
	if err != nil {
		return "", err
	}
	dbURL := secrets.Get("DB_URL")
	if dbURL == "" {
		return "", fmt.Errorf("DB_URL not found in secrets")
	}
	return dbURL, nil
}
