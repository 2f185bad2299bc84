package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/studyplan/auth"
	"github.com/kilianp07/studyplan/config"
)

var (
	tokenStudent string
	tokenAdmin   bool
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenStudent, "student", "", "student the token is limited to")
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "grant the admin role")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.API.JWTSecret == "" {
		return errors.New("api.jwt_secret is not configured")
	}
	if tokenStudent == "" && !tokenAdmin {
		return errors.New("either --student or --admin is required")
	}
	claims := auth.Claims{StudentID: tokenStudent}
	if tokenAdmin {
		claims.Roles = []string{auth.RoleAdmin}
	}
	tok, err := auth.Issue([]byte(cfg.API.JWTSecret), claims, tokenTTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
	return err
}
