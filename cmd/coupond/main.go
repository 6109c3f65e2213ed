package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sibuparking/coupons/internal/auth"
	"github.com/sibuparking/coupons/internal/httpserver"
	"github.com/sibuparking/coupons/internal/store/gormstore"
	"github.com/sibuparking/coupons/internal/store/mongostore"
	"github.com/sibuparking/coupons/pkg/coupon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL       = "database-url"
	flagListenAddr        = "listen-addr"
	flagAllowedOrigins    = "allowed-origins"
	flagSessionSigningKey = "session-signing-key"
	flagSessionIssuer     = "session-issuer"

	configKeyDatabaseURL       = "database_url"
	configKeyListenAddr        = "listen_addr"
	configKeyAllowedOrigins    = "allowed_origins"
	configKeySessionSigningKey = "session_signing_key"
	configKeySessionIssuer     = "session_issuer"

	defaultDatabaseURL    = "sqlite:///tmp/coupons.db"
	defaultListenAddr     = ":8080"
	defaultSessionIssuer  = "coupond"
	defaultMongoDatabase  = "parking"
	driverPostgres        = "postgres"
	driverSQLite          = "sqlite"
	driverMongo           = "mongodb"
	mongoConnectTimeout   = 10 * time.Second
	mongoShutdownTimeout  = 5 * time.Second
)

type runtimeConfig struct {
	DatabaseURL       string
	ListenAddr        string
	AllowedOrigins    string
	SessionSigningKey string
	SessionIssuer     string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "coupond: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "coupond",
		Short:         "Parking coupon HTTP API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "database connection string (sqlite://, postgres:// or mongodb://)")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-delimited CORS origins")
	cmd.Flags().String(flagSessionSigningKey, "", "HMAC key for session tokens")
	cmd.Flags().String(flagSessionIssuer, defaultSessionIssuer, "issuer claim for session tokens")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configKeyDatabaseURL:       "DATABASE_URL",
		configKeyListenAddr:        "LISTEN_ADDR",
		configKeyAllowedOrigins:    "ALLOWED_ORIGINS",
		configKeySessionSigningKey: "SESSION_SIGNING_KEY",
		configKeySessionIssuer:     "SESSION_ISSUER",
	}
	for configKey, envName := range bindings {
		if err := viper.BindEnv(configKey, envName); err != nil {
			return err
		}
	}

	flags := map[string]string{
		configKeyDatabaseURL:       flagDatabaseURL,
		configKeyListenAddr:        flagListenAddr,
		configKeyAllowedOrigins:    flagAllowedOrigins,
		configKeySessionSigningKey: flagSessionSigningKey,
		configKeySessionIssuer:     flagSessionIssuer,
	}
	for configKey, flagName := range flags {
		if err := viper.BindPFlag(configKey, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.AllowedOrigins = viper.GetString(configKeyAllowedOrigins)
	cfg.SessionSigningKey = viper.GetString(configKeySessionSigningKey)
	cfg.SessionIssuer = viper.GetString(configKeySessionIssuer)
	if cfg.SessionIssuer == "" {
		cfg.SessionIssuer = defaultSessionIssuer
	}
	if cfg.SessionSigningKey == "" {
		return fmt.Errorf("session signing key is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, cleanup, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer func() { _ = cleanup() }()

	clock := func() int64 { return time.Now().UTC().UnixMilli() }
	service, err := coupon.NewService(store, auth.ContextIdentity{}, clock,
		coupon.WithOperationLogger(&zapOperationLogger{logger: logger}),
	)
	if err != nil {
		return fmt.Errorf("coupon service init: %w", err)
	}

	sessions, err := auth.NewManager(auth.Config{
		SigningKey: []byte(cfg.SessionSigningKey),
		Issuer:     cfg.SessionIssuer,
	})
	if err != nil {
		return fmt.Errorf("session manager init: %w", err)
	}

	serverConfig := httpserver.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: httpserver.ParseAllowedOrigins(cfg.AllowedOrigins),
	}
	return httpserver.Run(ctx, serverConfig, service, sessions, logger)
}

func openStore(ctx context.Context, databaseURL string) (coupon.Store, func() error, error) {
	driver, err := resolveDriver(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if driver == driverMongo {
		return openMongoStore(ctx, databaseURL)
	}
	return openGormStore(ctx, databaseURL, driver)
}

func openGormStore(ctx context.Context, databaseURL string, driver string) (coupon.Store, func() error, error) {
	var db *gorm.DB
	var err error
	switch driver {
	case driverPostgres:
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	case driverSQLite:
		path, pathErr := sqlitePath(databaseURL)
		if pathErr != nil {
			return nil, nil, pathErr
		}
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	db = db.WithContext(ctx)
	if err := gormstore.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("schema migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return gormstore.New(db), sqlDB.Close, nil
}

func openMongoStore(ctx context.Context, databaseURL string) (coupon.Store, func() error, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(databaseURL))
	if err != nil {
		return nil, nil, err
	}
	databaseName := mongoDatabaseName(databaseURL)
	cleanup := func() error {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), mongoShutdownTimeout)
		defer cancel()
		return client.Disconnect(disconnectCtx)
	}
	return mongostore.New(client, databaseName), cleanup, nil
}

func resolveDriver(databaseURL string) (string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return driverPostgres, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return driverSQLite, nil
	case strings.HasPrefix(databaseURL, "mongodb://"), strings.HasPrefix(databaseURL, "mongodb+srv://"):
		return driverMongo, nil
	}
	return "", fmt.Errorf("unsupported database url %q", databaseURL)
}

func sqlitePath(databaseURL string) (string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse sqlite url: %w", err)
	}
	path := parsed.Path
	if parsed.Host != "" {
		path = filepath.Join(parsed.Host, parsed.Path)
	}
	if path == "" {
		return "", fmt.Errorf("sqlite url %q has no path", databaseURL)
	}
	return path, nil
}

func mongoDatabaseName(databaseURL string) string {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return defaultMongoDatabase
	}
	name := strings.TrimPrefix(parsed.Path, "/")
	if name == "" {
		return defaultMongoDatabase
	}
	return name
}

type zapOperationLogger struct {
	logger *zap.Logger
}

func (adapter *zapOperationLogger) LogOperation(ctx context.Context, entry coupon.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("user_id", entry.UserID.String()),
		zap.String("status", entry.Status),
	}
	if entry.CouponID != "" {
		fields = append(fields, zap.String("coupon_id", entry.CouponID))
	}
	if entry.VehicleNumber != "" {
		fields = append(fields, zap.String("vehicle_number", entry.VehicleNumber))
	}
	if entry.Uses > 0 {
		fields = append(fields, zap.Int("uses", entry.Uses))
	}
	if entry.AmountCents > 0 {
		fields = append(fields, zap.Int64("amount_cents", entry.AmountCents.Int64()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		adapter.logger.Warn("coupon operation failed", fields...)
		return
	}
	adapter.logger.Info("coupon operation", fields...)
}
