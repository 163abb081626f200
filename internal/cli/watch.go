package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [ontology-file]",
		Short: "Re-check the ontology whenever it changes",
		Long: `Watch the ontology file and re-run the checks on every save.

With a recorded baseline each run is a full compatibility check;
without one it validates the ontology. Stops on Ctrl-C.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, p, p.ontologyPath(args), opts.Debounce)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 100*time.Millisecond, "quiet period before re-running")

	return cmd
}

// runWatch runs one pass immediately and another after every change
// until ctx is done. Failing passes are reported, never fatal.
func runWatch(ctx context.Context, p *project, path string, delay time.Duration) error {
	var mu sync.Mutex
	pass := func() {
		mu.Lock()
		defer mu.Unlock()

		var err error
		if fileExists(p.cfg.Compatibility.BaselineIR) {
			err = runCheck(p, path, "")
		} else {
			err = runValidate(p, path)
		}
		p.log.Debug("watch pass finished", zap.String("path", path), zap.Bool("ok", err == nil))
	}

	pass()

	fw, err := newFileWatcher([]string{path}, delay, p.log, func(files []string) {
		p.out.VerboseLog("changed: %v", files)
		pass()
	})
	if err != nil {
		return p.out.Fail(err)
	}
	defer fw.Close()

	p.out.VerboseLog("Watching %s (Ctrl-C to stop)", path)
	<-ctx.Done()
	return nil
}
