// Command zkhost runs wasip1 guests under the zkvm host, stores their
// receipts and verifies stored receipts.
//
//	zkhost run [-config host.yaml] [-input input.json] guest.wasm
//	zkhost verify [-config host.yaml] <receipt-id>
//	zkhost schema
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/reglet-dev/zkguest/config"
	"github.com/reglet-dev/zkguest/host"
	"github.com/reglet-dev/zkguest/hostfuncs"
	"github.com/reglet-dev/zkguest/serde"
	"github.com/reglet-dev/zkguest/store"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: zkhost run [-config file] [-input file] <guest.wasm>")
	fmt.Fprintln(w, "       zkhost verify [-config file] <receipt-id>")
	fmt.Fprintln(w, "       zkhost schema")
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "run":
		return runGuest(ctx, args[1:], stdout)
	case "verify":
		return verify(args[1:], stdout)
	case "schema":
		data, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	default:
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runGuest(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML or TOML host config")
	inputPath := fs.String("input", "", "Path to a JSON array of typed input values")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("run takes exactly one guest module")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	codec, err := serde.ByName(cfg.Codec)
	if err != nil {
		return err
	}
	var input []byte
	if *inputPath != "" {
		data, err := os.ReadFile(*inputPath)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if input, err = encodeInput(codec, data); err != nil {
			return err
		}
	}

	wasmBytes, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read guest: %w", err)
	}

	registry, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(
			hostfuncs.PanicRecoveryMiddleware(),
			hostfuncs.LoggingMiddleware(logger),
		),
	)
	if err != nil {
		return err
	}
	opts, err := host.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts = append(opts, host.WithLogger(logger), host.WithHostFunctions(registry))

	executor, err := host.NewExecutor(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = executor.Close(ctx) }()

	guest, err := executor.LoadGuest(ctx, wasmBytes)
	if err != nil {
		return err
	}
	receipt, err := guest.Execute(ctx, input)
	if err != nil {
		return err
	}

	receipts, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = receipts.Close() }()
	id, err := receipts.Put(receipt)
	if err != nil {
		return err
	}
	logger.Info("receipt stored", zap.String("id", id), zap.Uint64("cycles", receipt.Cycles))

	return printJSON(stdout, struct {
		ID string `json:"id"`
		*host.Receipt
	}{id, receipt})
}

func verify(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML or TOML host config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("verify takes exactly one receipt id")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	receipts, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = receipts.Close() }()

	r, err := receipts.Get(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := r.Verify(); err != nil {
		return err
	}
	if r.ID() != fs.Arg(0) {
		return fmt.Errorf("receipt stored under %s has id %s", fs.Arg(0), r.ID())
	}
	_, err = fmt.Fprintf(stdout, "receipt %s verified: %d journal bytes, %d cycles\n", r.ID(), len(r.Journal), r.Cycles)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
