// Package main is the petitpdf CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/petitpdf/internal/cli"
	"github.com/hyperjump/petitpdf/internal/config"
	"github.com/hyperjump/petitpdf/internal/explore"
	"github.com/hyperjump/petitpdf/internal/extract"
	"github.com/hyperjump/petitpdf/internal/library"
	"github.com/hyperjump/petitpdf/internal/models"
	"github.com/hyperjump/petitpdf/internal/server"
	"github.com/hyperjump/petitpdf/internal/storage"
	"github.com/hyperjump/petitpdf/internal/syncclient"
	"github.com/hyperjump/petitpdf/internal/watcher"
	"github.com/hyperjump/petitpdf/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/petitpdf/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, a config.yaml in the
// current directory takes precedence so that running from a project checkout uses its
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// newLogger builds the process logger, adding the rotating file sink when configured.
func newLogger(cfg *config.Config, debug bool) (*zap.Logger, error) {
	return utils.NewLoggerWithFile(debug, utils.LogFileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
}

// reorderArgs moves flags that appear after positional arguments to the front so
// flag.Parse sees them ("petitpdf list -output json" and "petitpdf bookmarks <id> -output json").
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "import":
		runImport()
	case "list":
		runList()
	case "show":
		runShow()
	case "delete":
		runDelete()
	case "bookmarks":
		runBookmarks()
	case "session":
		runSession()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("petitpdf version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (sync requests, inbox events, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := newLogger(cfg, debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("sync_base_url", cfg.Sync.BaseURL),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	lib := components.Library
	watchOpts := []watcher.Option{watcher.WithRecursive(cfg.Watch.RecursiveOrDefault())}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		watcher.HandlerFuncs{
			OnAdded: func(path string) {
				if _, err := lib.Import(context.Background(), path); err != nil {
					logger.Warn("inbox import failed", zap.String("path", path), zap.Error(err))
				}
			},
			OnRemoved: func(path string) {
				err := lib.DeleteByLocation(context.Background(), path)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					logger.Warn("inbox removal failed", zap.String("path", path), zap.Error(err))
				}
			},
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.ScanExisting()

	srv := server.NewServer(lib, cfg, logger, watchSvc, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use direct storage)")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: petitpdf import [flags] <file.pdf-or-directory>")
		os.Exit(1)
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fmt.Printf("Invalid path: %v\n", err)
		os.Exit(1)
	}

	if *serverURL != "" {
		var doc models.Document
		if err := requestJSON(http.MethodPost, *serverURL+"/api/v1/documents", map[string]string{"path": path}, http.StatusCreated, &doc); err != nil {
			fmt.Printf("Import failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Document imported: %s (%s, %d pages)\n", doc.ID, doc.Name, doc.NumPages)
		return
	}

	components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := components.Library.ImportDirectory(ctx, path)
		if err != nil {
			fmt.Printf("Importing directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d file(s) from %s\n", n, path)
		return
	}
	doc, err := components.Library.Import(ctx, path)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document imported: %s (%s, %d pages)\n", doc.ID, doc.Name, doc.NumPages)
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	var docs []*models.Document
	if *serverURL != "" {
		var out struct {
			Documents []*models.Document `json:"documents"`
		}
		if err := requestJSON(http.MethodGet, *serverURL+"/api/v1/documents", nil, http.StatusOK, &out); err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
		docs = out.Documents
	} else {
		components, logger := mustInitialize(*configPath)
		defer logger.Sync()
		defer components.Close()
		var err error
		docs, err = components.Library.List(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteDocuments(os.Stdout, docs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runShow() {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	format := mustFormat(*outputFormat)

	if fs.NArg() < 1 {
		fmt.Println("Usage: petitpdf show [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	var doc *models.Document
	if *serverURL != "" {
		doc = &models.Document{}
		if err := requestJSON(http.MethodGet, *serverURL+"/api/v1/documents/"+url.PathEscape(docID), nil, http.StatusOK, doc); err != nil {
			fmt.Fprintf(os.Stderr, "Show failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, logger := mustInitialize(*configPath)
		defer logger.Sync()
		defer components.Close()
		var err error
		doc, err = components.Library.Get(context.Background(), docID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Show failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteDocument(os.Stdout, doc, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use direct storage)")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: petitpdf delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	if *serverURL != "" {
		if err := requestJSON(http.MethodDelete, *serverURL+"/api/v1/documents/"+url.PathEscape(docID), nil, http.StatusOK, nil); err != nil {
			fmt.Printf("Deletion failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Document deleted: %s\n", docID)
		return
	}

	components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()
	if err := components.Library.Delete(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runBookmarks() {
	fs := flag.NewFlagSet("bookmarks", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = call the bookmark endpoint directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	format := mustFormat(*outputFormat)

	if fs.NArg() < 1 {
		fmt.Println("Usage: petitpdf bookmarks [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	var records []models.BookmarkRecord
	if *serverURL != "" {
		var out struct {
			Bookmarks []models.BookmarkRecord `json:"bookmarks"`
		}
		target := *serverURL + "/api/v1/documents/" + url.PathEscape(docID) + "/bookmarks"
		if err := requestJSON(http.MethodGet, target, nil, http.StatusOK, &out); err != nil {
			fmt.Fprintf(os.Stderr, "Bookmarks failed: %v\n", err)
			os.Exit(1)
		}
		records = out.Bookmarks
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := newLogger(cfg, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		client, err := syncclient.NewClient(cfg.Sync, syncclient.WithLogger(logger))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create sync client: %v\n", err)
			os.Exit(1)
		}
		records, err = client.ListBookmarks(context.Background(), docID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bookmarks failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteBookmarks(os.Stdout, records, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	var status cli.Status
	if *serverURL != "" {
		if err := requestJSON(http.MethodGet, *serverURL+"/api/v1/status", nil, http.StatusOK, &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := newLogger(cfg, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		stats, err := components.Library.Stats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = cli.Status{
			Documents:    stats.Documents,
			Bookmarks:    stats.Bookmarks,
			LearningTime: stats.LearningTime,
			Config: &cli.StatusConfig{
				DatabasePath:      cfg.Storage.DatabasePath,
				SyncBaseURL:       cfg.Sync.BaseURL,
				UserID:            cfg.Sync.UserID,
				MergeRemoteOnOpen: cfg.Sync.MergeRemoteOnOpen,
			},
		}
		if size, err := storage.DatabaseSizeBytes(cfg.Storage.DatabasePath); err == nil {
			status.DiskUsageBytes = &size
		}
	}
	if err := cli.WriteStatus(os.Stdout, &status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: petitpdf watch <add|remove|list> [path]")
		fmt.Println("  petitpdf watch add <path>     Add an inbox directory")
		fmt.Println("  petitpdf watch remove <path>  Stop watching an inbox directory")
		fmt.Println("  petitpdf watch list           List inbox directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(reorderArgs(os.Args[3:]))
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: petitpdf watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body := map[string]interface{}{"path": path, "scan": true}
		if err := requestJSON(http.MethodPost, *serverURL+"/api/v1/watch/directories", body, http.StatusCreated, nil); err != nil {
			fmt.Printf("Add failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: petitpdf watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		target := *serverURL + "/api/v1/watch/directories?path=" + url.QueryEscape(path)
		if err := requestJSON(http.MethodDelete, target, nil, http.StatusOK, nil); err != nil {
			fmt.Printf("Remove failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := requestJSON(http.MethodGet, *serverURL+"/api/v1/watch/directories", nil, http.StatusOK, &out); err != nil {
			fmt.Printf("List failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runSession() {
	if len(os.Args) < 3 {
		printSessionUsage()
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("session", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	bookmarksOnly := fs.Bool("bookmarks-only", false, "explore: show bookmarked pages only")
	_ = fs.Parse(reorderArgs(os.Args[3:]))
	format := mustFormat(*outputFormat)

	if *serverURL == "" {
		fmt.Fprintln(os.Stderr, "session commands need a running server (petitpdf server)")
		os.Exit(1)
	}
	if err := sessionCommand(os.Stdout, *serverURL, sub, fs.Args(), *bookmarksOnly, format); err != nil {
		fmt.Fprintf(os.Stderr, "session %s failed: %v\n", sub, err)
		os.Exit(1)
	}
}

// sessionCommand drives the server's detail session: open, show, next, previous, page,
// bookmark, explore, select, and close. Page numbers on the command line are 1-based.
func sessionCommand(w io.Writer, serverURL, sub string, args []string, bookmarksOnly bool, format cli.OutputFormat) error {
	base := strings.TrimRight(serverURL, "/") + "/api/v1/session"
	var report cli.SessionReport
	switch sub {
	case "open":
		if len(args) < 1 {
			return errors.New("usage: petitpdf session open <document-id>")
		}
		target := strings.TrimRight(serverURL, "/") + "/api/v1/documents/" + url.PathEscape(args[0]) + "/open"
		if err := requestJSON(http.MethodPost, target, nil, http.StatusOK, &report); err != nil {
			return err
		}
	case "show":
		if err := requestJSON(http.MethodGet, base, nil, http.StatusOK, &report); err != nil {
			return err
		}
	case "next", "previous":
		if err := requestJSON(http.MethodPost, base+"/page", map[string]string{"action": sub}, http.StatusOK, &report); err != nil {
			return err
		}
	case "page":
		if len(args) < 1 {
			return errors.New("usage: petitpdf session page <n>")
		}
		page, err := cli.ParsePage(args[0])
		if err != nil {
			return err
		}
		body := map[string]interface{}{"action": "set", "page": page}
		if err := requestJSON(http.MethodPost, base+"/page", body, http.StatusOK, &report); err != nil {
			return err
		}
	case "bookmark":
		if err := requestJSON(http.MethodPost, base+"/bookmark", nil, http.StatusOK, &report); err != nil {
			return err
		}
	case "explore":
		var view explore.View
		if err := requestJSON(http.MethodPost, base+"/explorer", nil, http.StatusOK, &view); err != nil {
			return err
		}
		if bookmarksOnly {
			if err := requestJSON(http.MethodGet, base+"/explorer?bookmarks_only=true", nil, http.StatusOK, &view); err != nil {
				return err
			}
		}
		return cli.WriteExplorer(w, &view, format)
	case "select":
		if len(args) < 1 {
			return errors.New("usage: petitpdf session select <n>")
		}
		page, err := cli.ParsePage(args[0])
		if err != nil {
			return err
		}
		if err := requestJSON(http.MethodPost, base+"/explorer/select", map[string]int{"page": page}, http.StatusOK, &report); err != nil {
			return err
		}
	case "close":
		var doc models.Document
		if err := requestJSON(http.MethodDelete, base, nil, http.StatusOK, &doc); err != nil {
			return err
		}
		if format == cli.OutputJSON {
			return cli.WriteDocument(w, &doc, format)
		}
		_, err := fmt.Fprintf(w, "Session closed: %s (learning time %s)\n", doc.Name, models.FormatLearningTime(doc.LearningTime))
		return err
	default:
		return fmt.Errorf("unknown session subcommand %q", sub)
	}
	return cli.WriteSession(w, &report, format)
}

func printSessionUsage() {
	fmt.Println(`Usage: petitpdf session <subcommand> [flags]
  petitpdf session open <id>        Open a document (closes the current one)
  petitpdf session show             Show the open session
  petitpdf session next|previous    Turn the page
  petitpdf session page <n>         Go to page n
  petitpdf session bookmark         Toggle the bookmark on the current page
  petitpdf session explore          List pages (--bookmarks-only for bookmarked pages)
  petitpdf session select <n>       Go to page n from the explorer and close it
  petitpdf session close            Close the session and record learning time`)
}

// requestJSON sends body (if non-nil) as JSON, checks the status, and decodes the
// response into out (if non-nil).
func requestJSON(method, target string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(bytes.TrimSpace(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mustFormat(s string) cli.OutputFormat {
	format, err := cli.ParseFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func mustInitialize(configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg, cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return components, logger
}

// Components holds initialized services.
type Components struct {
	Storage storage.Storage
	Sync    *syncclient.Client
	Library *library.Library
}

func (c *Components) Close() {
	if c.Library != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Library.Close(ctx)
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	client, err := syncclient.NewClient(cfg.Sync, syncclient.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize sync client: %w", err)
	}
	lib := library.New(store, extract.NewPDFInspector(), client,
		library.WithLogger(logger),
		library.WithMergeRemote(cfg.Sync.MergeRemoteOnOpen),
	)
	return &Components{
		Storage: store,
		Sync:    client,
		Library: lib,
	}, nil
}

func printUsage() {
	fmt.Println(`petitpdf - PDF reading tracker with synced bookmarks

Usage:
  petitpdf server [flags]             Start the HTTP server and inbox watcher
  petitpdf import [flags] <path>      Import a PDF (or every PDF in a directory)
  petitpdf list [flags]               List documents, newest first
  petitpdf show [flags] <id>          Show one document and its bookmarked pages
  petitpdf delete [flags] <id>        Delete a document
  petitpdf bookmarks [flags] <id>     List the remote bookmarks of a document
  petitpdf session <subcommand>       Drive the reading session (open, page, bookmark, explore, close)
  petitpdf status [flags]             Show library and configuration status
  petitpdf watch <add|remove|list>    Manage inbox directories
  petitpdf version                    Show version
  petitpdf help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/petitpdf/config.yaml)
  --debug            Enable debug logging (sync requests, inbox events, etc.)

List / Show / Status / Bookmarks Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --output string    Output format: text or json (default: text)

Import / Delete Flags:
  --config string    Config file path
  --server string    Server URL (default: empty, direct storage)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)

Session Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)
  --bookmarks-only   explore: show bookmarked pages only

Environment:
  PETITPDF_USER_ID         User identifier sent with every bookmark request
  PETITPDF_SYNC_BASE_URL   Base URL of the bookmark endpoint
  (also read from a .env file next to the config file)

Examples:
  petitpdf server
  petitpdf import ~/Downloads/lecture-notes.pdf
  petitpdf list --output json
  petitpdf bookmarks 6f1c...
  petitpdf session open 6f1c... && petitpdf session page 12 && petitpdf session bookmark
  petitpdf status --server ""
  petitpdf watch add ~/PDFInbox`)
}
