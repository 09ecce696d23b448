package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medrep/promostock/internal/api"
	"github.com/medrep/promostock/internal/config"
	"github.com/medrep/promostock/internal/db"
	"github.com/medrep/promostock/internal/model"
	"github.com/medrep/promostock/internal/scheduler"
	"github.com/medrep/promostock/internal/store"
	"github.com/medrep/promostock/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: promostock <init|serve>")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		cmdInit(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\nUsage: promostock <init|serve>\n", os.Args[1])
		os.Exit(1)
	}
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	envFile := fs.String("env", "", "path to .env file")
	dbPath := fs.String("db", "", "path to SQLite database file (overrides PROMOSTOCK_DB)")
	fs.Parse(args)

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if _, err := os.Stat(cfg.DBPath); err == nil {
		fmt.Fprintf(os.Stderr, "Error: database file %s already exists\n", cfg.DBPath)
		os.Exit(1)
	}

	database, password, err := initDatabase(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	database.Close()

	fmt.Printf("Database created: %s\n", cfg.DBPath)
	printAdminCredentials(password)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	envFile := fs.String("env", "", "path to .env file")
	dbPath := fs.String("db", "", "path to SQLite database file (overrides PROMOSTOCK_DB)")
	addr := fs.String("addr", "", "listen address (overrides PROMOSTOCK_ADDR)")
	fs.Parse(args)

	log := logger.Must(logger.New())
	defer log.Sync()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("loading configuration", zap.Error(err))
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	// First start initializes the schema and a bootstrap admin.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.DBPath)
		if err != nil {
			log.Fatal("initializing database", zap.Error(err))
		}
		database.Close()

		fmt.Printf("Database created: %s\n", cfg.DBPath)
		printAdminCredentials(password)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("opening database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatal("migrating database", zap.Error(err))
	}

	// Without a configured secret, a persistent one lives in the
	// settings table so tokens survive restarts.
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = store.GetJWTSecret(context.Background(), database)
		if err != nil {
			log.Fatal("loading JWT secret", zap.Error(err))
		}
	}

	sched := scheduler.New(database, cfg, logger.Named(log, "scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatal("starting scheduler", zap.Error(err))
	}
	defer sched.Stop()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(database, cfg, jwtSecret, logger.Named(log, "api")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

// initDatabase creates a new database, runs migrations, and creates the
// bootstrap admin user.
func initDatabase(path string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.Migrate(database); err != nil {
		return fail(fmt.Errorf("running migrations: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	_, err = store.CreateUser(context.Background(), database, "admin", "Administrator", string(hash), model.RoleAdmin)
	if err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

func printAdminCredentials(password string) {
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: admin\n")
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password — it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
