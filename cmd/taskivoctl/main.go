package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskivo/taskivo/internal/store/postgres"
)

var (
	apiFlag  string
	userFlag int64
	rootCmd  = &cobra.Command{
		Use:   "taskivoctl",
		Short: "CLI client for the assistant REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Service base URL")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(apiFlag, "/api/health", os.Stdout)
		},
	}
	rootCmd.AddCommand(healthCmd)

	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "List a user's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == 0 {
				return fmt.Errorf("--user required")
			}
			status, _ := cmd.Flags().GetString("status")
			path := fmt.Sprintf("/api/users/%d/tasks", userFlag)
			if status != "" {
				path += "?status=" + status
			}
			return runGet(apiFlag, path, os.Stdout)
		},
	}
	tasksCmd.Flags().Int64VarP(&userFlag, "user", "u", 0, "User ID (required)")
	tasksCmd.Flags().StringP("status", "s", "", "Filter by status")
	rootCmd.AddCommand(tasksCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a user's task counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == 0 {
				return fmt.Errorf("--user required")
			}
			return runGet(apiFlag, fmt.Sprintf("/api/users/%d/stats", userFlag), os.Stdout)
		},
	}
	statsCmd.Flags().Int64VarP(&userFlag, "user", "u", 0, "User ID (required)")
	rootCmd.AddCommand(statsCmd)

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List registered users from the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsers(os.Stdout)
		},
	}
	rootCmd.AddCommand(usersCmd)

	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send a test WhatsApp message",
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")
			body, _ := cmd.Flags().GetString("body")
			if to == "" || body == "" {
				return fmt.Errorf("--to and --body required")
			}
			return runSend(to, body, os.Stdout)
		},
	}
	sendCmd.Flags().String("to", "", "Recipient phone number (international form)")
	sendCmd.Flags().String("body", "", "Message text")
	rootCmd.AddCommand(sendCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, _ := cmd.Flags().GetString("dsn")
			if dsn == "" {
				dsn = os.Getenv("TASKIVO_POSTGRES_DSN")
			}
			if dsn == "" {
				return fmt.Errorf("--dsn or TASKIVO_POSTGRES_DSN required")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := postgres.Bootstrap(ctx, dsn); err != nil {
				return err
			}
			fmt.Println("schema applied")
			return nil
		},
	}
	migrateCmd.Flags().String("dsn", "", "Postgres DSN")
	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
