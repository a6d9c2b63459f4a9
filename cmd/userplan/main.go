// Command userplan changes a user's billing plan and daily quota.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"chainpost/internal/infra"
	"chainpost/internal/sqlinline"
)

const (
	defaultFreeQuota = 5
	defaultProQuota  = 50
)

func main() {
	var (
		idFlag    string
		emailFlag string
		planFlag  string
		quotaFlag int
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email to update")
	flag.StringVar(&planFlag, "plan", "pro", "plan to assign (free, pro)")
	flag.IntVar(&quotaFlag, "quota", 0, "daily quota to enforce (0 uses the plan default)")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	plan := strings.TrimSpace(strings.ToLower(planFlag))

	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	quota := quotaFlag
	switch plan {
	case "free":
		if quota <= 0 {
			quota = defaultFreeQuota
		}
	case "pro":
		if quota <= 0 {
			quota = defaultProQuota
		}
	default:
		exitWithError(fmt.Errorf("unsupported plan %q", planFlag))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "userplan").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	var idArg, emailArg any
	if userID != "" {
		idArg = userID
	}
	if email != "" {
		emailArg = email
	}

	row := runner.QueryRow(ctx, sqlinline.QUpdateUserPlan, idArg, plan, quota, emailArg)
	var (
		updatedID    string
		updatedEmail string
		updatedPlan  string
		propsBytes   []byte
	)
	if err := row.Scan(&updatedID, &updatedEmail, &updatedPlan, &propsBytes); err != nil {
		exitWithError(fmt.Errorf("failed to update user plan: %w", err))
	}

	props := map[string]any{}
	if len(propsBytes) > 0 {
		_ = json.Unmarshal(propsBytes, &props)
	}

	fmt.Printf("User %s (%s) updated to plan %s\n", updatedID, updatedEmail, updatedPlan)
	if quota, ok := props["quota_daily"]; ok {
		fmt.Printf("quota_daily=%v\n", quota)
	}
	if used, ok := props["quota_used_today"]; ok {
		fmt.Printf("quota_used_today=%v\n", used)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
