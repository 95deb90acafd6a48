package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanet-platform/mrtfilter/internal/filtervm"
	"github.com/yanet-platform/mrtfilter/logging"
	"github.com/yanet-platform/mrtfilter/pipeline"
	"github.com/yanet-platform/mrtfilter/pipeline/format"
	"github.com/yanet-platform/mrtfilter/source"
	"github.com/yanet-platform/mrtfilter/xcmd"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	ConfigPath string
	Root       string
}

var rootCmd = &cobra.Command{
	Use:   "mrtfilter",
	Short: "Decode, filter, and re-encode archived MRT/BGP routing dumps",
	Run: func(_ *cobra.Command, args []string) {
		if len(args) > 0 {
			cmd.Root = args[0]
		}
		if err := run(cmd); err != nil {
			if errors.Is(err, xcmd.Interrupted{}) {
				return
			}
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to the configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	cfg := DefaultConfig()
	if cmd.ConfigPath != "" {
		loaded, err := LoadConfig(cmd.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Root == "" {
		cmd.Root = "."
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	var vm *filtervm.VM
	if cfg.FilterImage != "" {
		img, err := filtervm.LoadImage(cfg.FilterImage)
		if err != nil {
			return fmt.Errorf("failed to load filter image: %w", err)
		}
		vm = filtervm.New(img)
	}

	formatter, err := format.New(cfg.Pipeline.Format)
	if err != nil {
		return fmt.Errorf("failed to build output formatter: %w", err)
	}

	p := pipeline.New(log, vm, formatter, &cfg.Pipeline)

	ctx := context.Background()
	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return processAll(ctx, log, p, &cfg.Source, cmd.Root)
	})
	wg.Go(func() error {
		err := xcmd.WaitInterrupted(ctx)
		log.Infof("caught signal: %v", err)
		return err
	})

	return wg.Wait()
}

// processAll discovers archive files under root and runs the pipeline
// over each one in turn, printing every surviving message and retained
// peer entry to stdout.
func processAll(ctx context.Context, log *zap.SugaredLogger, p *pipeline.Pipeline, srcCfg *source.Config, root string) error {
	files, err := source.Discover(root, srcCfg.Glob)
	if err != nil {
		return fmt.Errorf("failed to discover files: %w", err)
	}

	for _, file := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		h, err := source.Open(file, srcCfg)
		if err != nil {
			log.Warnw("failed to open file", "file", file, "error", err)
			continue
		}

		err = p.Run(file, h, func(r pipeline.Result) error {
			if r.Text != "" {
				fmt.Println(r.Text)
			} else if r.Peer.AS != 0 {
				fmt.Printf("%s peer %s AS%d\n", file, r.Peer.Addr.Address(), r.Peer.AS)
			}
			return nil
		})
		h.Close()
		if err != nil {
			log.Warnw("pipeline run failed", "file", file, "error", err)
		}
	}
	return nil
}
