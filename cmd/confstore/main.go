// ABOUTME: Entry point for the confstore CLI
// ABOUTME: Manages the settings database: init, seed and day-to-day setting commands

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/confstore/internal/auth"
	"github.com/2389/confstore/internal/config"
	"github.com/2389/confstore/internal/seed"
	"github.com/2389/confstore/internal/settings"
	"github.com/2389/confstore/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                      __     _
  ___ ___  _ __  / _|___| |_ ___  _ __ ___
 / __/ _ \| '_ \| |_/ __| __/ _ \| '__/ _ \
| (_| (_) | | | |  _\__ \ || (_) | | |  __/
 \___\___/|_| |_|_| |___/\__\___/|_|  \___|
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: confstore <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  init                          Create a config file and empty database")
		fmt.Println("  migrate                       Open the database and apply pending migrations")
		fmt.Println("  seed [file]                   Apply a TOML seed file")
		fmt.Println("  set <screen> <name> <type> <value>   Write a setting")
		fmt.Println("  get <screen> <name>           Read a setting")
		fmt.Println("  list <screen>                 List settings for a screen")
		fmt.Println("  history <screen> <name>       Show recent changes for a setting")
		fmt.Println("  delete <screen> <name>        Remove a setting")
		fmt.Println("  register <name> <email> <password>   Create an account")
		fmt.Println()
		fmt.Println("Scope flags for set/get/delete: --scope GLOBAL|INSTANCE|USER --instance ID --user N")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit()
	case "migrate":
		err = runMigrate()
	case "seed":
		err = runSeed(ctx)
	case "set":
		err = runSet(ctx)
	case "get":
		err = runGet(ctx)
	case "list":
		err = runList(ctx)
	case "history":
		err = runHistory(ctx)
	case "delete":
		err = runDelete(ctx)
	case "register":
		err = runRegister(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runInit writes a starter config with a random JWT secret and creates the
// database file so the schema exists before first use.
func runInit() error {
	configPath := config.ResolvePath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	green := color.New(color.FgGreen)

	if _, err := os.Stat(configPath); err == nil {
		cyan.Printf("  Using existing config: %s\n", configPath)
	} else {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				dataDir = "data"
			} else {
				dataDir = filepath.Join(home, ".local", "share")
			}
		}
		dbPath := filepath.Join(dataDir, "confstore", "confstore.db")

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		configContent := fmt.Sprintf(`# confstore configuration
# Generated by confstore init

database:
  path: "%s"

auth:
  jwt_secret: "%s"
  token_expiry: "24h"

logging:
  level: "info"
  format: "text"
`, dbPath, jwtSecret)

		if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
		green.Printf("  ✓ Created config: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)
	fmt.Println()
	green.Println("  Init complete!")
	return nil
}

// runMigrate opens the store, which creates the schema and applies pending
// column migrations as a side effect.
func runMigrate() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	color.New(color.FgGreen).Printf("  ✓ Database up to date: %s\n", cfg.Database.Path)
	return nil
}

func runSeed(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	seedPath := cfg.Seed.Path
	if len(os.Args) > 2 {
		seedPath = os.Args[2]
	}
	if seedPath == "" {
		return fmt.Errorf("no seed file: pass a path or set seed.path in the config")
	}

	f, err := seed.Load(seedPath)
	if err != nil {
		return err
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	svc := settings.NewService(s, logger)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	seeder := seed.NewSeeder(s, svc, hasher, logger)

	report := seeder.Apply(ctx, f)

	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)
	red := color.New(color.FgRed)

	for _, res := range report.Results {
		switch res.Status {
		case seed.StatusCreated:
			green.Print("  ✓ ")
			fmt.Printf("%s %s\n", res.Kind, res.Name)
		case seed.StatusSkipped:
			gray.Printf("  ○ %s %s (exists)\n", res.Kind, res.Name)
		case seed.StatusFailed:
			red.Print("  ✗ ")
			fmt.Printf("%s %s: %v\n", res.Kind, res.Name, res.Err)
		}
	}

	fmt.Println()
	fmt.Printf("  %d created, %d skipped, %d failed\n",
		report.Created(), report.Skipped(), report.Failed())

	if report.Failed() > 0 {
		return fmt.Errorf("%d seed item(s) failed", report.Failed())
	}
	return nil
}

func runSet(ctx context.Context) error {
	args := os.Args[2:]
	if len(args) < 4 {
		return fmt.Errorf("usage: confstore set <screen> <name> <type> <value> [flags]")
	}
	screen, name, typeStr, rawValue := args[0], args[1], args[2], args[3]

	key, flags, err := parseKeyFlags(args[4:])
	if err != nil {
		return err
	}
	key.Name = name
	key.Screen = screen
	key = globalByDefault(key)

	svc, closeStore, err := openService()
	if err != nil {
		return err
	}
	defer closeStore()

	err = svc.Set(ctx, settings.SetParams{
		Key:   key,
		Value: rawValue,
		Type:  settings.ValueType(strings.ToUpper(typeStr)),
		Actor: flags.actor,
	})
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Print("  ✓ ")
	fmt.Printf("%s/%s = %s\n", screen, name, rawValue)
	return nil
}

func runGet(ctx context.Context) error {
	args := os.Args[2:]
	if len(args) < 2 {
		return fmt.Errorf("usage: confstore get <screen> <name> [flags]")
	}
	key, _, err := parseKeyFlags(args[2:])
	if err != nil {
		return err
	}
	key.Screen = args[0]
	key.Name = args[1]
	key = globalByDefault(key)

	svc, closeStore, err := openService()
	if err != nil {
		return err
	}
	defer closeStore()

	entry, err := svc.Get(ctx, key)
	if err != nil {
		return err
	}

	printSetting(entry)
	return nil
}

func runList(ctx context.Context) error {
	args := os.Args[2:]
	if len(args) < 1 {
		return fmt.Errorf("usage: confstore list <screen> [flags]")
	}
	key, _, err := parseKeyFlags(args[1:])
	if err != nil {
		return err
	}

	svc, closeStore, err := openService()
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := svc.ByScreen(ctx, args[0], settings.Filter{
		Scope:      key.Scope,
		InstanceID: key.InstanceID,
		UserID:     key.UserID,
	})
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("  (no settings)")
		return nil
	}
	for _, e := range entries {
		printSetting(e)
	}
	return nil
}

func runHistory(ctx context.Context) error {
	args := os.Args[2:]
	if len(args) < 2 {
		return fmt.Errorf("usage: confstore history <screen> <name> [--limit N]")
	}
	_, flags, err := parseKeyFlags(args[2:])
	if err != nil {
		return err
	}

	svc, closeStore, err := openService()
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := svc.History(ctx, args[1], args[0], flags.limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("  (no history)")
		return nil
	}

	gray := color.New(color.FgHiBlack)
	for _, rec := range records {
		gray.Printf("  %s  ", rec.ChangedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("%s: %s -> %s", rec.Scope, rec.OldValue, rec.NewValue)
		if rec.ChangedBy != "" {
			gray.Printf("  (%s)", rec.ChangedBy)
		}
		fmt.Println()
	}
	return nil
}

func runDelete(ctx context.Context) error {
	args := os.Args[2:]
	if len(args) < 2 {
		return fmt.Errorf("usage: confstore delete <screen> <name> [flags]")
	}
	key, _, err := parseKeyFlags(args[2:])
	if err != nil {
		return err
	}
	key.Screen = args[0]
	key.Name = args[1]
	key = globalByDefault(key)

	svc, closeStore, err := openService()
	if err != nil {
		return err
	}
	defer closeStore()

	deleted, err := svc.Delete(ctx, key)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Printf("  %s/%s not found\n", key.Screen, key.Name)
		return nil
	}

	color.New(color.FgGreen).Print("  ✓ ")
	fmt.Printf("deleted %s/%s\n", key.Screen, key.Name)
	return nil
}

func runRegister(ctx context.Context) error {
	args := os.Args[2:]
	if len(args) < 3 {
		return fmt.Errorf("usage: confstore register <name> <email> <password>")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	tokens := auth.NewJWTManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenExpiry)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	svc := auth.NewService(s, tokens, hasher, logger)

	user, err := svc.Register(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Print("  ✓ ")
	fmt.Printf("registered %s (account %d)\n", user.Email, user.AccountID)
	return nil
}

// keyFlags holds the shared optional flags for setting commands.
type keyFlags struct {
	actor string
	limit int
}

// parseKeyFlags parses the shared --scope/--instance/--user/--by/--limit
// flags. Supports both "--flag value" and "--flag=value" formats.
//
// The scope is left empty when neither --scope nor an implying flag is
// given: list treats an empty scope as "all scopes", while commands that
// address a single setting fall back to GLOBAL via globalByDefault.
func parseKeyFlags(args []string) (settings.Key, keyFlags, error) {
	key := settings.Key{}
	flags := keyFlags{actor: "cli"}

	next := func(i int, name string) (string, int, error) {
		if i+1 >= len(args) {
			return "", i, fmt.Errorf("%s requires a value", name)
		}
		return args[i+1], i + 1, nil
	}

	var err error
	var val string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--scope":
			if val, i, err = next(i, arg); err != nil {
				return key, flags, err
			}
			key.Scope = settings.Scope(strings.ToUpper(val))
		case strings.HasPrefix(arg, "--scope="):
			key.Scope = settings.Scope(strings.ToUpper(strings.TrimPrefix(arg, "--scope=")))
		case arg == "--instance":
			if val, i, err = next(i, arg); err != nil {
				return key, flags, err
			}
			key.InstanceID = val
		case strings.HasPrefix(arg, "--instance="):
			key.InstanceID = strings.TrimPrefix(arg, "--instance=")
		case arg == "--user":
			if val, i, err = next(i, arg); err != nil {
				return key, flags, err
			}
			if key.UserID, err = strconv.ParseInt(val, 10, 64); err != nil {
				return key, flags, fmt.Errorf("parsing --user: %w", err)
			}
		case strings.HasPrefix(arg, "--user="):
			if key.UserID, err = strconv.ParseInt(strings.TrimPrefix(arg, "--user="), 10, 64); err != nil {
				return key, flags, fmt.Errorf("parsing --user: %w", err)
			}
		case arg == "--by":
			if val, i, err = next(i, arg); err != nil {
				return key, flags, err
			}
			flags.actor = val
		case strings.HasPrefix(arg, "--by="):
			flags.actor = strings.TrimPrefix(arg, "--by=")
		case arg == "--limit":
			if val, i, err = next(i, arg); err != nil {
				return key, flags, err
			}
			if flags.limit, err = strconv.Atoi(val); err != nil {
				return key, flags, fmt.Errorf("parsing --limit: %w", err)
			}
		case strings.HasPrefix(arg, "--limit="):
			if flags.limit, err = strconv.Atoi(strings.TrimPrefix(arg, "--limit=")); err != nil {
				return key, flags, fmt.Errorf("parsing --limit: %w", err)
			}
		default:
			return key, flags, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	// INSTANCE scope is implied when an instance is named, USER when a
	// user is named.
	if key.InstanceID != "" && key.Scope == "" {
		key.Scope = settings.ScopeInstance
	}
	if key.UserID != 0 && key.Scope == "" {
		key.Scope = settings.ScopeUser
	}

	return key, flags, nil
}

// globalByDefault fills in GLOBAL for commands that need a concrete scope.
func globalByDefault(key settings.Key) settings.Key {
	if key.Scope == "" {
		key.Scope = settings.ScopeGlobal
	}
	return key
}

func printSetting(e *settings.Setting) {
	gray := color.New(color.FgHiBlack)
	fmt.Printf("  %s/%s = %s", e.Screen, e.Name, e.Value.String())
	gray.Printf("  [%s %s]", e.Scope, e.Value.Type)
	if e.InstanceID != "" {
		gray.Printf(" instance=%s", e.InstanceID)
	}
	if e.UserID != 0 {
		gray.Printf(" user=%d", e.UserID)
	}
	fmt.Println()
}

// loadConfig loads the config and builds the logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.ResolvePath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, setupLogger(cfg.Logging), nil
}

// openService opens the store and wraps it in a settings service.
// The returned func closes the store.
func openService() (*settings.Service, func(), error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	return settings.NewService(s, logger), func() { _ = s.Close() }, nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
