package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/nkiryanov/authd/internal/db"
	"github.com/nkiryanov/authd/internal/repository/postgres"
	"github.com/nkiryanov/authd/internal/service/auth"
	"github.com/nkiryanov/authd/internal/service/user"
)

const usage = `Usage: authctl <command> [flags]

Commands:
  createsuperuser   Create an active admin user
  changepassword    Change a user's password and log out its sessions
  prune             Delete expired blacklist entries

Flags:
  -d, --database   Database connection string (or DATABASE_URI env)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	command := os.Args[1]

	fs := pflag.NewFlagSet("authctl", pflag.ExitOnError)
	dsn := fs.StringP("database", "d", os.Getenv("DATABASE_URI"), "Database connection string")
	username := fs.StringP("username", "u", "", "Username to operate on")
	keepSessions := fs.Bool("keep-sessions", false, "Do not log out user sessions on password change")
	fs.Parse(os.Args[2:]) // nolint:errcheck

	ctx := context.Background()

	pool, err := db.ConnectAndMigrate(ctx, *dsn)
	if err != nil {
		fatalf("error while connecting to db: %v", err)
	}
	defer pool.Close()

	storage := postgres.NewStorage(pool)

	switch command {
	case "createsuperuser":
		err = createSuperuser(ctx, storage, *username)
	case "changepassword":
		err = changePassword(ctx, storage, *username, *keepSessions)
	case "prune":
		err = prune(ctx, storage)
	default:
		fmt.Print(usage)
		os.Exit(2)
	}

	if err != nil {
		fatalf("%s failed: %v", command, err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func createSuperuser(ctx context.Context, storage *postgres.Storage, username string) error {
	username, err := resolveUsername(username)
	if err != nil {
		return err
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	users := user.NewService(auth.DefaultHasher, storage.User())
	created, err := users.Create(ctx, user.CreateParams{
		Username: username,
		Password: password,
		IsAdmin:  true,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Superuser %q created with id %d\n", created.Username, created.ID)
	return nil
}

func changePassword(ctx context.Context, storage *postgres.Storage, username string, keepSessions bool) error {
	username, err := resolveUsername(username)
	if err != nil {
		return err
	}

	users := user.NewService(auth.DefaultHasher, storage.User())
	u, err := users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	if _, err := users.ChangePassword(ctx, u.ID, password, keepSessions); err != nil {
		return err
	}

	if keepSessions {
		fmt.Printf("Password for %q changed, existing sessions kept\n", u.Username)
	} else {
		fmt.Printf("Password for %q changed, all sessions logged out\n", u.Username)
	}
	return nil
}

func prune(ctx context.Context, storage *postgres.Storage) error {
	pruned, err := storage.Blacklist().Prune(ctx, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Pruned %d expired blacklist entries\n", pruned)
	return nil
}

func resolveUsername(username string) (string, error) {
	if username != "" {
		return username, nil
	}

	fmt.Println("Enter username")
	reader := bufio.NewReader(os.Stdin)
	username, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("username must not be empty")
	}
	return username, nil
}

func promptPassword() (string, error) {
	fmt.Println("Enter password")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}

	fmt.Println("Repeat password")
	repeated, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}

	if string(password) != string(repeated) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(password) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(password), nil
}
