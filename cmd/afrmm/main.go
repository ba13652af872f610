// Package main provides the AFRMM payment automation CLI: preview a
// surcharge payment, confirm it to run the portal automation, and
// inspect recorded payments. Confirmation is a separate invocation by
// design; no single command both proposes and executes a payment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	appconfig "github.com/freightops/afrmm/pkg/config"
	"github.com/freightops/afrmm/pkg/intent"
	"github.com/freightops/afrmm/pkg/ledger"
	"github.com/freightops/afrmm/pkg/logging"
	"github.com/freightops/afrmm/pkg/orchestrator"
	"github.com/freightops/afrmm/pkg/portal"
	"github.com/freightops/afrmm/pkg/resolver"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile   string
	DataDir      string
	Mode         string
	ProcessRef   string
	CENumber     string
	IntentID     string
	SessionID    string
	Headless     bool
	AuthorizePay bool
	ShowVersion  bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("afrmm v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (default ~/.afrmm/config.json)")
	flag.StringVar(&cli.DataDir, "data-dir", "", "Directory for databases and receipts (default ~/.afrmm)")
	flag.StringVar(&cli.Mode, "mode", "", "Operation: preview, confirm, retry, cancel or status")
	flag.StringVar(&cli.ProcessRef, "process", "", "Freight process reference (preview)")
	flag.StringVar(&cli.CENumber, "ce", "", "CE number, bypassing the process map (preview)")
	flag.StringVar(&cli.IntentID, "intent", "", "Intent id to confirm or retry")
	flag.StringVar(&cli.SessionID, "session", "cli", "Session identifier for intent scoping")
	flag.BoolVar(&cli.Headless, "headless", false, "Run the browser without a window")
	flag.BoolVar(&cli.AuthorizePay, "authorize-pay", false, "Authorize accepting the portal's pay confirmation dialog for this run")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "afrmm - AFRMM surcharge payment automation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: afrmm -mode <operation> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Preview a payment and park a confirmable intent\n")
		fmt.Fprintf(os.Stderr, "  afrmm -mode preview -process IMP-2023-0042\n\n")
		fmt.Fprintf(os.Stderr, "  # Execute the previewed payment\n")
		fmt.Fprintf(os.Stderr, "  afrmm -mode confirm -intent <id> -authorize-pay\n\n")
		fmt.Fprintf(os.Stderr, "  # Inspect pending intents and recorded payments\n")
		fmt.Fprintf(os.Stderr, "  afrmm -mode status\n\n")
	}

	flag.Parse()
	return cli
}

// run wires the stores, resolvers and portal runner, then dispatches
// on the requested mode.
func run(ctx context.Context, cli *CLIConfig) error {
	dataDir := cli.DataDir
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".afrmm")
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := appconfig.Initialize(cli.ConfigFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	log, err := logging.NewLogger("afrmm")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	intents, err := intent.Open(filepath.Join(dataDir, "intents.db"))
	if err != nil {
		return fmt.Errorf("failed to open intent store: %w", err)
	}
	defer intents.Close()

	records, err := ledger.Open(filepath.Join(dataDir, "ledger.db"))
	if err != nil {
		return fmt.Errorf("failed to open payment ledger: %w", err)
	}
	defer records.Close()

	receipts, err := ledger.NewReceiptStore(filepath.Join(dataDir, "receipts"))
	if err != nil {
		return fmt.Errorf("failed to open receipt store: %w", err)
	}

	lookupCfg := appconfig.GetLookup()
	cachePath := lookupCfg.CachePath()
	if cachePath == "" {
		cachePath = filepath.Join(dataDir, "values.yaml")
	}
	cache, err := resolver.NewStaleCache(cachePath)
	if err != nil {
		return fmt.Errorf("failed to open value cache: %w", err)
	}

	client := resolver.NewClient(lookupCfg.BaseURL(), lookupCfg.APIKey(),
		resolver.WithRateLimit(lookupCfg.RatePerMinute()))
	values := resolver.New(records, client, cache, resolver.WithLogger(log))

	var ces orchestrator.CEResolver
	if cli.CENumber != "" {
		ces = &staticCEResolver{ceNumber: cli.CENumber}
	} else {
		ces, err = newFileCEResolver(filepath.Join(dataDir, "processes.yaml"))
		if err != nil {
			return err
		}
	}

	portalCfg := appconfig.GetPortal()
	approval := appconfig.GetApproval()
	bank := appconfig.GetBankAccount()

	runner := &orchestrator.BrowserRunner{
		Config: portal.Config{
			BaseURL:      portalCfg.BaseURL(),
			Username:     portalCfg.Username(),
			Password:     portalCfg.Password(),
			Headless:     portalCfg.Headless() || cli.Headless,
			StepTimeout:  time.Duration(portalCfg.StepTimeoutSeconds()) * time.Second,
			StepAttempts: portalCfg.StepAttempts(),
			// The persisted setting or an explicit flag may authorize
			// the dialog; nothing else does.
			AuthorizePayDialog: approval.AutoAcceptPayDialog() || cli.AuthorizePay,
		},
		KeepOpenOnSuccess: approval.KeepBrowserOpenOnSuccess(),
		Log:               log,
	}

	orch := orchestrator.New(ces, values, intents, records, receipts, runner, orchestrator.Config{
		Bank: ledger.BankFields{
			BankCode: bank.BankCode(),
			Branch:   bank.Branch(),
			Account:  bank.Account(),
		},
		IntentTTL:         time.Duration(approval.IntentTTLMinutes()) * time.Minute,
		ExecutionDeadline: time.Duration(approval.ExecutionDeadlineSeconds()) * time.Second,
	}, log)

	switch cli.Mode {
	case "preview":
		return runPreview(ctx, orch, cli)
	case "confirm":
		return runConfirm(ctx, orch, bank, cli)
	case "retry":
		return runRetry(ctx, orch, bank, cli)
	case "cancel":
		return runCancel(ctx, intents, cli)
	case "status":
		return runStatus(ctx, intents, records, cli)
	case "":
		flag.Usage()
		return fmt.Errorf("mode is required")
	default:
		return fmt.Errorf("invalid mode: %s (must be preview, confirm, retry, cancel or status)", cli.Mode)
	}
}

func runPreview(ctx context.Context, orch *orchestrator.Orchestrator, cli *CLIConfig) error {
	processRef := cli.ProcessRef
	if processRef == "" && cli.CENumber != "" {
		processRef = cli.CENumber
	}
	if processRef == "" {
		return fmt.Errorf("preview requires -process or -ce")
	}

	preview, err := orch.Preview(ctx, cli.SessionID, processRef)
	if err != nil {
		return err
	}

	fmt.Println(preview.Text)
	fmt.Printf("\nIntent: %s\n", preview.IntentID)
	fmt.Printf("To execute: afrmm -mode confirm -intent %s\n", preview.IntentID)
	return nil
}

func runConfirm(ctx context.Context, orch *orchestrator.Orchestrator, bank *appconfig.BankAccountSection, cli *CLIConfig) error {
	if cli.IntentID == "" {
		return fmt.Errorf("confirm requires -intent")
	}
	if !bank.IsConfigured() {
		return fmt.Errorf("bank account is not configured; set the bank_account section first")
	}

	result, err := orch.Confirm(ctx, cli.IntentID)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func runRetry(ctx context.Context, orch *orchestrator.Orchestrator, bank *appconfig.BankAccountSection, cli *CLIConfig) error {
	if cli.IntentID == "" {
		return fmt.Errorf("retry requires -intent")
	}
	if !bank.IsConfigured() {
		return fmt.Errorf("bank account is not configured; set the bank_account section first")
	}

	result, err := orch.Retry(ctx, cli.IntentID)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func runCancel(ctx context.Context, intents *intent.Store, cli *CLIConfig) error {
	if cli.IntentID == "" {
		return fmt.Errorf("cancel requires -intent")
	}
	if err := intents.Cancel(ctx, cli.IntentID); err != nil {
		return fmt.Errorf("failed to cancel intent: %w", err)
	}
	fmt.Printf("Intent %s cancelled.\n", cli.IntentID)
	return nil
}

func runStatus(ctx context.Context, intents *intent.Store, records *ledger.Ledger, cli *CLIConfig) error {
	pending, err := intents.Find(ctx, cli.SessionID, "pay_afrmm")
	if err != nil {
		return fmt.Errorf("failed to query intents: %w", err)
	}
	if pending != nil {
		fmt.Printf("Pending intent %s (expires %s):\n%s\n\n",
			pending.ID, pending.ExpiresAt.Local().Format(time.RFC3339), pending.PreviewText)
	} else {
		fmt.Println("No pending intent.")
	}

	recent, err := records.List(ctx, 10)
	if err != nil {
		return fmt.Errorf("failed to list payment records: %w", err)
	}
	if len(recent) == 0 {
		fmt.Println("No recorded payments.")
		return nil
	}

	fmt.Println("Recent payments:")
	for _, rec := range recent {
		fmt.Printf("  %s  CE %s  R$ %s  %s  %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.CENumber, rec.AmountPaid, rec.Status, rec.ID)
	}
	return nil
}

func printResult(result *orchestrator.Result) {
	fmt.Printf("State: %s\n", result.State)
	if result.Message != "" {
		fmt.Println(result.Message)
	}
	if result.AmountPaid != 0 {
		fmt.Printf("Amount: R$ %s\n", result.AmountPaid)
	}
	if result.RecordID != "" {
		fmt.Printf("Record: %s\n", result.RecordID)
	}
	if result.ReceiptRef != "" {
		fmt.Printf("Receipt: %s\n", result.ReceiptRef)
	}
	if result.Warning != "" {
		fmt.Printf("Warning: %s\n", result.Warning)
	}
	if result.Err != nil {
		fmt.Printf("Detail: %v\n", result.Err)
	}
}
