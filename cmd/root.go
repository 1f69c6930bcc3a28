/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/blacktop/skyrelay/internal/config"
	"github.com/blacktop/skyrelay/internal/logutil"
	"github.com/blacktop/skyrelay/internal/relay"
	"github.com/blacktop/skyrelay/internal/relay/bluesky"
	"github.com/blacktop/skyrelay/internal/relay/twitter"
)

var (
	intervalFlag time.Duration
	pdsURLFlag   string
	verboseFlag  bool
)

const defaultBlueskyPDSURL = "https://bsky.social"

// Execute runs the root command until the context is cancelled.
func Execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skyrelay",
		Short: "Relay Twitter posts to Bluesky",
		Long: "skyrelay watches one or more Twitter accounts and mirrors each new post " +
			"to a paired Bluesky account, rewriting link previews and trimming text to " +
			"Bluesky's limits. Account pairs come from numbered environment variables " +
			"(SKYRELAY_TWITTER_USER1, SKYRELAY_BLUESKY_HANDLE1, SKYRELAY_BLUESKY_APP_PASSWORD1, ...).",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
		Example: `  skyrelay
  skyrelay --interval 2m --verbose
  skyrelay --pds-url https://pds.example.com`,
	}

	cmd.Flags().DurationVar(&intervalFlag, "interval", relay.DefaultInterval, "Delay between poll cycles per account")
	cmd.Flags().StringVar(&pdsURLFlag, "pds-url", defaultBlueskyPDSURL, "Bluesky PDS to publish through")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "V", false, "Enable debug logging")
	cmd.Flags().SortFlags = false

	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	logutil.SetVerbose(verboseFlag)

	cfg, err := config.Load(pdsURLFlag)
	if err != nil {
		return err
	}

	dialSource := func(ctx context.Context, _ relay.AccountPair) (relay.SourceClient, error) {
		return twitter.New(ctx, twitter.Config{
			APIKey:       cfg.Twitter.APIKey,
			APISecret:    cfg.Twitter.APISecret,
			AccessToken:  cfg.Twitter.AccessToken,
			AccessSecret: cfg.Twitter.AccessSecret,
		})
	}
	dialDest := func(ctx context.Context, pair relay.AccountPair) (relay.DestinationClient, error) {
		return bluesky.New(ctx, bluesky.Config{
			PDSURL:      cfg.PDSURL,
			Handle:      pair.DestHandle,
			AppPassword: pair.DestPassword,
		})
	}

	// One HTTP client shared by every relay's preview fetches; deadlines
	// are per call, so the client itself carries no timeout.
	preview := relay.NewPreview(&http.Client{})

	supervisor, err := relay.NewSupervisor(cfg.Pairs, dialSource, dialDest, preview, intervalFlag)
	if err != nil {
		return err
	}

	logutil.Infof("relaying %d account pair(s) every %s", len(cfg.Pairs), intervalFlag)
	return supervisor.Run(cmd.Context())
}
