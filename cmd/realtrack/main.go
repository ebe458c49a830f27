// Command realtrack manages transactions, buildings, participants and their
// links from the terminal.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/celerix-dev/realtrack/internal/config"
	"github.com/celerix-dev/realtrack/internal/logging"
	"github.com/celerix-dev/realtrack/pkg/collection"
	"github.com/celerix-dev/realtrack/pkg/sdk"
	"github.com/spf13/pflag"
)

const (
	ExitSuccess = iota
	ExitErrUsage
	ExitErrConfig
	ExitErrCommand
)

var (
	flagConfig   = pflag.StringP("config", "c", "", "Load configuration from the given .yaml or .json file")
	flagAPI      = pflag.String("api", "", "Use the backend at the given base URL")
	flagSearch   = pflag.StringP("search", "s", "", "Only list records matching the given text")
	flagYes      = pflag.BoolP("yes", "y", false, "Answer yes to every confirmation")
	flagJSON     = pflag.Bool("json", false, "Print records as JSON")
	flagInsecure = pflag.Bool("insecure", false, "Skip TLS certificate verification")
)

func main() {
	pflag.Usage = printUsage
	pflag.Parse()

	args := pflag.Args()
	if len(args) < 2 {
		printUsage()
		os.Exit(ExitErrUsage)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(ExitErrConfig)
	}

	provider, _ := logging.ParseProvider(cfg.LogProvider)
	log, err := logging.New(provider, "realtrack", cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: initialize logging: %v\n", err)
		os.Exit(ExitErrConfig)
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.InsecureTLS {
		hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	client, err := sdk.NewClient(cfg.APIBaseURL, sdk.WithHTTPClient(hc), sdk.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(ExitErrConfig)
	}

	var confirmer collection.Confirmer = collection.ConfirmAlways
	if !*flagYes {
		confirmer = newPromptConfirmer(os.Stdin, os.Stderr)
	}

	app := &cli{
		client: client,
		out:    os.Stdout,
		json:   *flagJSON,
		search: *flagSearch,
		deps: []collection.Option{
			collection.WithLogger(log),
			collection.WithNotifier(newTextNotifier(os.Stderr)),
			collection.WithConfirmer(confirmer),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.run(ctx, strings.ToLower(args[0]), strings.ToLower(args[1]), args[2:]); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
			os.Exit(ExitErrUsage)
		}
		// a notification has already described the failure
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		}
		os.Exit(ExitErrCommand)
	}
}

func loadConfig() (config.Client, error) {
	f, err := config.Load(*flagConfig)
	if err != nil {
		return config.Client{}, err
	}
	cfg := f.Client
	if pflag.Lookup("api").Changed {
		cfg.APIBaseURL = *flagAPI
	}
	if pflag.Lookup("insecure").Changed {
		cfg.InsecureTLS = *flagInsecure
	}
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func printUsage() {
	fmt.Println("realtrack - manage real-estate transactions")
	fmt.Println("\nUsage:")
	fmt.Println("  realtrack [flags] transactions list")
	fmt.Println("  realtrack [flags] transactions add")
	fmt.Println("  realtrack [flags] transactions set <id> <field> <value>")
	fmt.Println("  realtrack [flags] transactions delete <id>...")
	fmt.Println("  realtrack [flags] buildings list")
	fmt.Println("  realtrack [flags] buildings add <street> [zip] [description]")
	fmt.Println("  realtrack [flags] buildings set <id> <field> <value>")
	fmt.Println("  realtrack [flags] buildings delete <id>...")
	fmt.Println("  realtrack [flags] participants list")
	fmt.Println("  realtrack [flags] participants add <name>")
	fmt.Println("  realtrack [flags] participants delete <id>...")
	fmt.Println("  realtrack [flags] priorities list")
	fmt.Println("  realtrack [flags] links list <transactionID>")
	fmt.Println("  realtrack [flags] links add <transactionID> <buildingID>")
	fmt.Println("  realtrack [flags] links delete <transactionID> <buildingID>")
	fmt.Println("\nFlags:")
	pflag.PrintDefaults()
	fmt.Println("\nEnvironment Variables:")
	fmt.Printf("  %-24s Base URL of the backend (default: %s)\n", sdk.EnvBaseURL, sdk.DefaultBaseURL)
	fmt.Printf("  %-24s Request timeout, e.g. 15s (default: %s)\n", sdk.EnvTimeout, config.DefaultTimeout)
	fmt.Printf("  %-24s Config file to load\n", config.EnvConfigFile)
}
