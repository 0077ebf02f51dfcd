package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chunkytofustudios/analytics-gate/internal/config"
	"github.com/chunkytofustudios/analytics-gate/internal/gate"
	"github.com/spf13/cobra"
)

var (
	trackEventName   string
	trackParams      map[string]string
	trackOutboundURL string
	trackLabel       string
	trackPagePath    string
	trackPageTitle   string
)

var errScriptNotLoaded = errors.New("analytics script did not load")

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Send a single event and wait for its delivery",
	Long: `track sends one event through the same gate and delivery path the
server uses. Exactly one of --event, --outbound-url or --page-path is required.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}
		return runTrack(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func init() {
	trackCmd.Flags().StringVar(&trackEventName, "event", "", "custom event name")
	trackCmd.Flags().StringToStringVar(&trackParams, "param", map[string]string{}, "custom event parameter as key=value (can be repeated)")
	trackCmd.Flags().StringVar(&trackOutboundURL, "outbound-url", "", "track a click on this outbound URL")
	trackCmd.Flags().StringVar(&trackLabel, "label", "", "label of the outbound link")
	trackCmd.Flags().StringVar(&trackPagePath, "page-path", "", "track a page view of this path")
	trackCmd.Flags().StringVar(&trackPageTitle, "page-title", "", "title of the page view (defaults to the route title)")
	trackCmd.MarkFlagsMutuallyExclusive("event", "outbound-url", "page-path")
	trackCmd.MarkFlagsOneRequired("event", "outbound-url", "page-path")
}

func resetTrackFlags() {
	trackEventName = ""
	trackParams = map[string]string{}
	trackOutboundURL = ""
	trackLabel = ""
	trackPagePath = ""
	trackPageTitle = ""
	for _, name := range []string{"event", "param", "outbound-url", "label", "page-path", "page-title"} {
		if flag := trackCmd.Flags().Lookup(name); flag != nil {
			flag.Changed = false
		}
	}
}

func runTrack(ctx context.Context, cfg config.Config, out io.Writer) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithTimeout(ctx, 2*cfg.Timeout())
	defer cancel()

	switch {
	case trackOutboundURL != "":
		rt.gate.TrackOutboundLink(trackOutboundURL, trackLabel)
	case trackPagePath != "":
		rt.gate.TrackPageView(trackPagePath, trackPageTitle)
	default:
		params := make(map[string]any, len(trackParams))
		for k, v := range trackParams {
			params[k] = v
		}
		rt.gate.TrackEvent(trackEventName, params)
	}

	if err := waitReady(ctx, rt.gate); err != nil {
		return err
	}
	if err := rt.dispatcher.Flush(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "delivered %d event(s)\n", len(rt.layer.Events()))
	return nil
}

// waitReady blocks until the current load finishes. A load that ends
// without the gate being ready is an error.
func waitReady(ctx context.Context, g *gate.Gate) error {
	select {
	case <-g.Ready():
		return nil
	case <-g.Done():
		if g.State() == gate.StateReady {
			return nil
		}
		return errScriptNotLoaded
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", errScriptNotLoaded, ctx.Err())
	}
}
