package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"legal_matter_engine/config"
	"legal_matter_engine/db"
	"legal_matter_engine/models"
	"legal_matter_engine/services"

	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		dbPath string
		name   string
		email  string
		role   string
	)

	cmd := &cobra.Command{
		Use:           "create-user",
		Short:         "Register a user the engine can act on behalf of",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if dbPath == "" {
				dbPath = cfg.DBPath
			}

			conn, err := db.Open(db.DSN(dbPath), logger.Warn)
			if err != nil {
				return err
			}
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			if err := db.Migrate(conn); err != nil {
				return err
			}

			store := services.NewStore(conn, cfg.StoreTimeout)
			user, err := services.RegisterUser(context.Background(), store, name, email, role)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "User created")
			fmt.Fprintf(out, "  ID:    %s\n", user.ID)
			fmt.Fprintf(out, "  Name:  %s\n", user.Name)
			fmt.Fprintf(out, "  Email: %s\n", user.Email)
			fmt.Fprintf(out, "  Role:  %s\n", user.Role)
			fmt.Fprintf(out, "Send the ID in the X-Actor-ID header to act as this user.\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path (defaults to DB_PATH)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", models.RoleStaff, "admin, lawyer, staff or client")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
