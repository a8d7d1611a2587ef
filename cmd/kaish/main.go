// Package main wires the kaish kernel into a minimal standalone binary:
// it loads configuration, sets up logging, builds the standard VFS
// mount layout and tool registry, and feeds stdin to the kernel one
// line at a time. Line editing, MCP transport, and argument parsing
// belong to whatever embeds this kernel; this binary exists only to
// prove the wiring.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/kaishlang/kaish/internal/config"
	"github.com/kaishlang/kaish/internal/logger"
	"github.com/kaishlang/kaish/pkg/kaish/kernel"
	"github.com/kaishlang/kaish/pkg/kaish/outputlimit"
	"github.com/kaishlang/kaish/pkg/kaish/state"
	"github.com/kaishlang/kaish/pkg/kaish/terminal"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
	"github.com/kaishlang/kaish/pkg/kaish/tools/builtins"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "kaish:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure data directories: %w", err)
	}

	log := logger.SetupLogger(cfg)
	defer logger.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := tools.NewRegistry()
	builtins.Register(registry)

	router, err := buildBaseVFS(registry)
	if err != nil {
		return fmt.Errorf("build vfs: %w", err)
	}

	var store *state.Store
	if cfg.Kernel.DataDir != "" {
		store, err = state.Open(ctx, cfg.StateDBPath())
		if err != nil {
			log.Warn().Err(err).Msg("state store unavailable, running without persistence")
			store = nil
		}
	}

	// Job control only makes sense when this process genuinely owns an
	// interactive controlling terminal; Init fails harmlessly otherwise
	// (piped stdin, non-unix hosts), and the kernel runs external commands
	// through the non-interactive path instead.
	term, err := terminal.Init()
	if err != nil {
		log.Warn().Err(err).Msg("interactive job control unavailable, running non-interactively")
		term = nil
	}

	k := kernel.New(registry, router, kernel.Options{
		ValidateBeforeExecute: cfg.Kernel.ValidateBeforeExecute,
		ExitOnError:           cfg.Kernel.ExitOnError,
		AllowExternal:         cfg.Kernel.ExternalCommands,
		OutputLimit: outputlimit.Config{
			MaxBytes:  cfg.Output.MaxBytes,
			HeadBytes: cfg.Output.HeadBytes,
			TailBytes: cfg.Output.TailBytes,
		},
		SpillDir: cfg.SpillDir(),
		State:    store,
		Terminal: term,
	})

	// /v/jobs is synthesized from the kernel's own job manager, so it
	// can only be mounted once the kernel exists to own one.
	if err := router.Mount("/v/jobs", vfs.NewJobFs(k.Jobs())); err != nil {
		return fmt.Errorf("mount /v/jobs: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	return repl(ctx, k, log)
}

func getConfigPath() string {
	if envPath := os.Getenv("KAISH_CONFIG"); envPath != "" {
		return envPath
	}
	return config.DefaultConfigPath()
}

// buildBaseVFS mounts the standard paths spec §6 names that don't
// depend on the kernel existing yet: / and /tmp as in-kernel memory,
// /v/bin as a read-only enumeration of registered tools, and
// /mnt/local as a sandboxed passthrough to the host filesystem rooted
// at the process's working directory. /v/jobs is mounted separately
// once the kernel's job manager exists.
func buildBaseVFS(registry *tools.Registry) (*vfs.Router, error) {
	router := vfs.NewRouter()
	if err := router.Mount("/", vfs.NewMemoryFs()); err != nil {
		return nil, err
	}
	if err := router.Mount("/tmp", vfs.NewMemoryFs()); err != nil {
		return nil, err
	}
	if err := router.Mount("/v/bin", vfs.NewBuiltinFs(registry)); err != nil {
		return nil, err
	}

	if wd, err := os.Getwd(); err == nil {
		if localFs, err := vfs.NewLocalFs(wd, false); err == nil {
			_ = router.Mount("/mnt/local", localFs)
		}
	}
	return router, nil
}

// repl feeds stdin to the kernel one statement (line) at a time and
// prints the resulting stdout/stderr, stopping at EOF, "exit", or ctx
// cancellation (spec §4.13: the host drives Kernel::execute in a loop;
// this is the simplest such host).
func repl(ctx context.Context, k *kernel.Kernel, log arbor.ILogger) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return k.Shutdown(context.Background())
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" {
			break
		}

		res, err := k.Execute(ctx, line)
		if err != nil {
			log.Error().Err(err).Msg("execute failed")
			continue
		}
		if res.Out != "" {
			fmt.Fprint(os.Stdout, res.Out)
		}
		if res.Err != "" {
			fmt.Fprint(os.Stderr, res.Err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return k.Shutdown(context.Background())
}
