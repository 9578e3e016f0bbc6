// Package main is the entry point for the openshelf admin CLI.
// It manages user accounts directly against the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/domain"
	"github.com/openshelf/openshelf/internal/repository"
	"github.com/openshelf/openshelf/internal/repository/postgres"
	"github.com/openshelf/openshelf/internal/repository/sqlite"
	"github.com/openshelf/openshelf/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "version":
		fmt.Printf("openshelf admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "create-user":
		runOrDie(cmdCreateUser, args)

	case "grant-admin":
		runOrDie(cmdGrantAdmin, args)

	case "revoke-admin":
		runOrDie(cmdRevokeAdmin, args)

	case "deactivate":
		runOrDie(cmdSetStatus(false), args)

	case "activate":
		runOrDie(cmdSetStatus(true), args)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`openshelf admin CLI

Usage:
  openshelf-admin <command> [arguments]

Commands:
  create-user   Create a user account
  grant-admin   Grant the admin role to a user
  revoke-admin  Revoke the admin role from a user
  deactivate    Deactivate a user account
  activate      Reactivate a user account
  version       Print version information
  help          Show this help message

Examples:
  openshelf-admin create-user -email admin@example.com -username admin -password secret -first Ada -last Lovelace -admin
  openshelf-admin grant-admin -email reader@example.com
  openshelf-admin deactivate -username reader

All commands read the same configuration as the server (config file via
-config, or OPENSHELF_* environment variables).`)
}

type command func(ctx context.Context, users *service.UserService, repo repository.UserRepository, fs *flag.FlagSet, args []string) error

// runOrDie opens the database, runs the command and exits non-zero on error.
func runOrDie(cmd command, args []string) {
	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")

	// The command defines its own flags on fs and parses; -config is
	// extracted up front so the database can be opened first.
	ctx := context.Background()

	cfg, err := preloadConfig(args, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	repo, closeDB, err := openUserRepository(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeDB()

	users := service.NewUserService(repo, cfg.Auth.BcryptCost, logger)

	if err := cmd(ctx, users, repo, fs, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// preloadConfig extracts -config from the raw arguments before the command
// flags are defined.
func preloadConfig(args []string, fallback string) (*config.Config, error) {
	path := fallback
	for i, arg := range args {
		if (arg == "-config" || arg == "--config") && i+1 < len(args) {
			path = args[i+1]
		}
	}
	return config.Load(path)
}

func cmdCreateUser(ctx context.Context, users *service.UserService, _ repository.UserRepository, fs *flag.FlagSet, args []string) error {
	email := fs.String("email", "", "email address")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	admin := fs.Bool("admin", false, "grant the admin role")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := users.Register(ctx, service.RegisterInput{
		Email:     *email,
		Username:  *username,
		Password:  *password,
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		return err
	}

	if *admin {
		if err := users.SetRoles(ctx, user.ID, []string{domain.RoleUser, domain.RoleAdmin}); err != nil {
			return err
		}
	}

	fmt.Printf("Created user %d (%s)\n", user.ID, user.Username)
	return nil
}

func cmdGrantAdmin(ctx context.Context, users *service.UserService, repo repository.UserRepository, fs *flag.FlagSet, args []string) error {
	user, err := lookupUser(ctx, repo, fs, args)
	if err != nil {
		return err
	}
	if user.HasRole(domain.RoleAdmin) {
		fmt.Printf("User %s already has the admin role\n", user.Username)
		return nil
	}
	if err := users.SetRoles(ctx, user.ID, append(user.Roles, domain.RoleAdmin)); err != nil {
		return err
	}
	fmt.Printf("Granted admin to %s\n", user.Username)
	return nil
}

func cmdRevokeAdmin(ctx context.Context, users *service.UserService, repo repository.UserRepository, fs *flag.FlagSet, args []string) error {
	user, err := lookupUser(ctx, repo, fs, args)
	if err != nil {
		return err
	}

	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		if role != domain.RoleAdmin {
			roles = append(roles, role)
		}
	}
	if err := users.SetRoles(ctx, user.ID, roles); err != nil {
		return err
	}
	fmt.Printf("Revoked admin from %s\n", user.Username)
	return nil
}

func cmdSetStatus(active bool) command {
	return func(ctx context.Context, users *service.UserService, repo repository.UserRepository, fs *flag.FlagSet, args []string) error {
		user, err := lookupUser(ctx, repo, fs, args)
		if err != nil {
			return err
		}

		if active {
			err = users.Activate(ctx, user.ID)
		} else {
			err = users.Deactivate(ctx, user.ID)
		}
		if err != nil {
			return err
		}

		status := "deactivated"
		if active {
			status = "activated"
		}
		fmt.Printf("User %s %s\n", user.Username, status)
		return nil
	}
}

// lookupUser resolves the -email or -username flag into a user record.
func lookupUser(ctx context.Context, repo repository.UserRepository, fs *flag.FlagSet, args []string) (*domain.User, error) {
	email := fs.String("email", "", "email address")
	username := fs.String("username", "", "username")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch {
	case *email != "":
		return repo.GetByEmail(ctx, *email)
	case *username != "":
		return repo.GetByUsername(ctx, *username)
	default:
		return nil, fmt.Errorf("-email or -username is required")
	}
}

// openUserRepository connects to the configured database backend.
func openUserRepository(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.UserRepository, func(), error) {
	if cfg.Database.IsEmbedded() {
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			SynchronousMode: cfg.Database.SynchronousMode,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewUserRepository(db), func() { db.Close() }, nil
	}

	db, err := postgres.NewDB(ctx, postgres.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        cfg.Database.MaxOpenConns,
		MinConns:        cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewUserRepository(db), func() { db.Close() }, nil
}
