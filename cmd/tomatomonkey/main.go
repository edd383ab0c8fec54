package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/blocker"
	"github.com/tomatomonkey/tomatomonkey/internal/config"
	"github.com/tomatomonkey/tomatomonkey/internal/daemon"
	"github.com/tomatomonkey/tomatomonkey/internal/database"
	"github.com/tomatomonkey/tomatomonkey/internal/models"
	"github.com/tomatomonkey/tomatomonkey/internal/notify"
	"github.com/tomatomonkey/tomatomonkey/internal/reporter"
	"github.com/tomatomonkey/tomatomonkey/internal/settings"
	"github.com/tomatomonkey/tomatomonkey/internal/storage"
	"github.com/tomatomonkey/tomatomonkey/internal/timer"
	"github.com/tomatomonkey/tomatomonkey/internal/web"
	"github.com/tomatomonkey/tomatomonkey/pkg/focus"
	"github.com/tomatomonkey/tomatomonkey/pkg/focus/x11"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "tomatomonkey"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "start":
		startDaemon(false)
	case "serve":
		startDaemon(true)
	case "stop":
		stopDaemon()
	case "status":
		showStatus()
	case "check":
		checkURL()
	case "report":
		generateReport()
	case "clear":
		clearDatabase()
	case "version":
		fmt.Printf("tomatomonkey version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`tomatomonkey - Focus session timer with distraction blocking

Usage:
  tomatomonkey <command> [options]

Commands:
  start              Start the focus daemon
  serve              Start daemon with web API server
                     (--ephemeral: foreground, in-memory state only)
  stop               Stop the focus daemon
  status             Show daemon status and current session
  check <url>        Decide whether a URL would be blocked right now
  report [period]    Generate session report (period: day, week, month)
  clear              Clear all session history from the database
  version            Show version information
  help               Show this help message

Examples:
  tomatomonkey serve
  tomatomonkey status
  tomatomonkey check https://reddit.com/r/all
  tomatomonkey report week
  tomatomonkey stop

Environment Variables:
  TOMATOMONKEY_DB_PATH         Database file path
  TOMATOMONKEY_GRACE_DELAY     Completed-to-idle reset delay in seconds
  TOMATOMONKEY_MAX_SESSION     Maximum session duration in seconds
  TOMATOMONKEY_CACHE_TTL       Block decision cache lifetime in seconds
  TOMATOMONKEY_WATCH_INTERVAL  Store poll interval in milliseconds
  TOMATOMONKEY_PID_FILE        PID file path
  TOMATOMONKEY_WEB_HOST        Web API host
  TOMATOMONKEY_WEB_PORT        Web API port

Version: %s
`, version)
}

func startDaemon(withWeb bool) {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Ephemeral mode runs in the foreground on an in-memory store, with no
	// database and no PID file. Meant for trying the system out.
	if withWeb && len(os.Args) > 2 && os.Args[2] == "--ephemeral" {
		runEphemeral(cfg)
		return
	}

	// Check if already running
	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if running {
		log.Fatalf("Daemon is already running (PID: %d)", pid)
	}

	// Check if we should daemonize
	if os.Getenv("TOMATOMONKEY_DAEMON_CHILD") != "1" {
		// Parent process - fork and exit
		daemonize(withWeb, cfg)
		return
	}

	// Child process - run the daemon
	runDaemon(cfg, dm, withWeb)
}

func runDaemon(cfg *config.Config, dm *daemon.Daemon, withWeb bool) {
	// Redirect logs to file
	logFile, err := os.OpenFile("/tmp/tomatomonkey.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	// Initialize database
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Write PID file
	if err := dm.WritePID(); err != nil {
		log.Fatalf("Failed to write PID file: %v", err)
	}
	defer dm.RemovePID()

	repo := database.NewRepository(db)

	store, err := storage.NewSQLiteStore(repo, cfg.Store.WatchInterval)
	if err != nil {
		log.Fatalf("Failed to open shared state store: %v", err)
	}
	defer store.Close()

	var notifier notify.Notifier = notify.Nop{}
	if settings.Load(store).NotificationsEnabled {
		notifier = notify.NewDesktop(appName)
	}

	tm := timer.New(store, repo, notifier, timer.Config{
		TickInterval: cfg.Timer.TickInterval,
		GraceDelay:   cfg.Timer.GraceDelay,
		MaxSeconds:   cfg.Timer.MaxSessionSeconds,
	})
	defer tm.Close()

	engine := blocker.New(store, tm, &logOverlay{}, blocker.Config{
		CacheTTL: cfg.Blocker.CacheTTL,
	})
	defer engine.Close()

	// Window focus watcher, best effort. Without X11 the engine still
	// reacts to store changes and API calls.
	var watcher focus.Watcher
	if w, err := x11.NewWatcher(time.Second); err == nil {
		watcher = w
		log.Println("X11 focus watcher initialized")
	} else {
		watcher = focus.NewNop()
		log.Printf("Focus watcher unavailable: %v", err)
	}
	defer watcher.Close()

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Events():
				if !ok {
					return
				}
				engine.HandleWindowFocus()
			}
		}
	}()

	var webServer *web.Server
	if withWeb {
		webServer = web.NewServer(cfg, tm, engine, store, repo)
		go func() {
			if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
				log.Printf("Web server error: %v", err)
			}
		}()
		log.Printf("Web API available at: http://%s", webServer.GetAddress())
	}

	log.Println("Starting tomatomonkey daemon...")
	log.Printf("Configuration:\n%s", cfg.String())

	// Wait for shutdown signal
	<-sigChan
	log.Println("Received shutdown signal")

	cancel()

	if webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down web server: %v", err)
		}
	}

	log.Println("Daemon stopped successfully")
}

func runEphemeral(cfg *config.Config) {
	store := storage.NewHub().Open()
	defer store.Close()

	tm := timer.New(store, nil, notify.NewDesktop(appName), timer.Config{
		TickInterval: cfg.Timer.TickInterval,
		GraceDelay:   cfg.Timer.GraceDelay,
		MaxSeconds:   cfg.Timer.MaxSessionSeconds,
	})
	defer tm.Close()

	engine := blocker.New(store, tm, &logOverlay{}, blocker.Config{
		CacheTTL: cfg.Blocker.CacheTTL,
	})
	defer engine.Close()

	webServer := web.NewServer(cfg, tm, engine, store, nil)
	go func() {
		if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("Web server error: %v", err)
		}
	}()

	fmt.Printf("Ephemeral mode: state is not persisted\n")
	fmt.Printf("Web API available at: http://%s\n", webServer.GetAddress())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down web server: %v", err)
	}
}

func stopDaemon() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return
	}

	fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		log.Fatalf("Failed to stop daemon: %v", err)
	}

	fmt.Println("Daemon stopped successfully")
}

func showStatus() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Status: Not running")
	} else {
		fmt.Printf("Status: Running (PID: %d)\n", pid)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
	}

	store, err := openStore(cfg)
	if err != nil {
		fmt.Printf("\nCould not read session state: %v\n", err)
		return
	}
	defer store.Close()

	raw, ok, err := store.Get(storage.KeyTimerState)
	if err != nil || !ok {
		fmt.Println("\nNo session recorded")
		return
	}

	state := models.IdleTimerState(time.Now().UnixMilli())
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		fmt.Println("\nSession state unreadable")
		return
	}

	fmt.Printf("\nSession:\n")
	fmt.Printf("  Status: %s\n", state.Status)
	if state.TaskTitle != "" {
		fmt.Printf("  Task: %s\n", state.TaskTitle)
	}
	if state.Status == models.TimerRunning || state.Status == models.TimerPaused {
		fmt.Printf("  Remaining: %ds of %ds\n", state.RemainingSeconds, state.TotalSeconds)
	}
}

func checkURL() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: tomatomonkey check <url>")
		os.Exit(1)
	}

	cfg := config.New()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open shared state store: %v", err)
	}
	defer store.Close()

	blocked := blocker.EarlyCheck(store, os.Args[2], blocker.EarlyCheckOptions{
		StalenessThreshold: cfg.Blocker.StalenessThreshold,
		RetryWait:          cfg.Blocker.StaleRetryWait,
	})

	if blocked {
		fmt.Println("blocked")
		os.Exit(2)
	}
	fmt.Println("allowed")
}

func generateReport() {
	periodType := "day"
	if len(os.Args) > 2 {
		periodType = os.Args[2]
	}

	cfg := config.New()

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	rep := reporter.New(repo)

	// Check for JSON flag
	jsonOutput := false
	if len(os.Args) > 3 && os.Args[3] == "--json" {
		jsonOutput = true
	}

	report, err := rep.GenerateReport(periodType)
	if err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}

	if jsonOutput {
		jsonStr, err := rep.FormatReportJSON(report)
		if err != nil {
			log.Fatalf("Failed to format JSON: %v", err)
		}
		fmt.Println(jsonStr)
	} else {
		fmt.Println(rep.FormatReportText(report))
	}
}

func clearDatabase() {
	cfg := config.New()

	// Prompt for confirmation
	fmt.Print("This will delete all session history. Are you sure? (yes/no): ")
	var response string
	fmt.Scanln(&response)

	if response != "yes" && response != "y" {
		fmt.Println("Operation cancelled")
		return
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	if err := repo.Clear(); err != nil {
		log.Fatalf("Failed to clear database: %v", err)
	}

	fmt.Println("Database cleared successfully")
}

func openStore(cfg *config.Config) (storage.Store, error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return storage.NewSQLiteStore(database.NewRepository(db), cfg.Store.WatchInterval)
}

func daemonize(withWeb bool, cfg *config.Config) {
	// Fork the process
	env := os.Environ()
	env = append(env, "TOMATOMONKEY_DAEMON_CHILD=1")

	args := os.Args

	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil}, // stdin, stdout, stderr to /dev/null
		Sys: &syscall.SysProcAttr{
			Setsid: true, // Create new session
		},
	}

	process, err := os.StartProcess(args[0], args, procAttr)
	if err != nil {
		log.Fatalf("Failed to start daemon process: %v", err)
	}

	fmt.Printf("Daemon started successfully (PID: %d)\n", process.Pid)
	if withWeb {
		fmt.Printf("Web API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	}
	fmt.Println("Logs: /tmp/tomatomonkey.log")
}

// logOverlay stands in for a visual blocking surface. The daemon has no
// browser page to cover, so block transitions go to the log.
type logOverlay struct {
	visible  bool
	blocking bool
}

func (o *logOverlay) Show() {
	o.visible = true
	log.Println("Blocker overlay: shown")
}

func (o *logOverlay) Hide() {
	o.visible = false
	log.Println("Blocker overlay: hidden")
}

func (o *logOverlay) IsVisible() bool { return o.visible }

func (o *logOverlay) SetBlockingMode(blocking bool) {
	o.blocking = blocking
}
