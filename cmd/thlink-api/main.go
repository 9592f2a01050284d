package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/config"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "thlink-api",
		Short: "thlink document graph backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("log-encoding", defaults.GetString("log.encoding"), "Log encoding (json, console)")
	flags.String("signing-secret", "", "Token signing secret (overrides env)")
	flags.Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Bearer token TTL in minutes")
	flags.String("store-backend", defaults.GetString("store.backend"), "Record store backend (sqlite, dynamodb)")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path")
	flags.String("dynamodb-table", defaults.GetString("dynamodb.table"), "DynamoDB table name")
	flags.String("dynamodb-region", defaults.GetString("dynamodb.region"), "DynamoDB region")
	flags.String("dynamodb-endpoint", defaults.GetString("dynamodb.endpoint"), "DynamoDB endpoint override")
	flags.String("blob-directory", defaults.GetString("blob.directory"), "Directory holding document bodies")
	flags.String("public-base-url", defaults.GetString("blob.public_base_url"), "Public base URL used in signed blob links")
	flags.String("redis-address", defaults.GetString("redis.address"), "Redis address for event fan-out (empty disables)")
	flags.String("redis-channel", defaults.GetString("redis.channel"), "Redis channel prefix for events")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.encoding", "log-encoding")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "store.backend", "store-backend")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "dynamodb.table", "dynamodb-table")
	bindFlag(cmd, "dynamodb.region", "dynamodb-region")
	bindFlag(cmd, "dynamodb.endpoint", "dynamodb-endpoint")
	bindFlag(cmd, "blob.directory", "blob-directory")
	bindFlag(cmd, "blob.public_base_url", "public-base-url")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "redis.channel", "redis-channel")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// newTokenCommand issues a bearer token for local use, e.g. `thlink-api token --subject ada --workspace research`.
func newTokenCommand() *cobra.Command {
	var subject, workspace string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a workspace-scoped bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			issuer, err := newTokenIssuer(appConfig)
			if err != nil {
				return err
			}
			token, expiresIn, err := issuer.IssueToken(cmd.Context(), subject, workspace)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires in %s\n", token, time.Duration(expiresIn)*time.Second)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace the token grants access to")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newTokenIssuer(appConfig config.AppConfig) (*auth.TokenIssuer, error) {
	return auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        appConfig.Issuer,
		Audience:      appConfig.Audience,
		TokenTTL:      appConfig.TokenTTL,
	})
}
