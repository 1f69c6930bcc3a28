// Package config loads skyrelay configuration from environment variables.
// Account pairs are enumerated with numbered suffixes starting at 1
// (SKYRELAY_TWITTER_USER1, SKYRELAY_BLUESKY_HANDLE1, ...) and must be
// contiguous.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/blacktop/skyrelay/internal/relay"
)

const (
	envTwitterAPIKey       = "SKYRELAY_TWITTER_CONSUMER_KEY"
	envTwitterAPISecret    = "SKYRELAY_TWITTER_CONSUMER_SECRET"
	envTwitterAccessToken  = "SKYRELAY_TWITTER_ACCESS_TOKEN"
	envTwitterAccessSecret = "SKYRELAY_TWITTER_ACCESS_TOKEN_SECRET"

	envPDSURL = "SKYRELAY_BLUESKY_PDS_URL"

	envSourceHandlePrefix = "SKYRELAY_TWITTER_USER"
	envDestHandlePrefix   = "SKYRELAY_BLUESKY_HANDLE"
	envDestPasswordPrefix = "SKYRELAY_BLUESKY_APP_PASSWORD"

	defaultPDSURL = "https://bsky.social"
)

// Twitter holds the OAuth 1.0a user-context credentials shared by every
// relay's source session.
type Twitter struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Config is the full process configuration, immutable after Load.
type Config struct {
	Pairs   []relay.AccountPair
	Twitter Twitter
	PDSURL  string
}

// Load reads configuration from the environment. The base PDS URL is used
// when SKYRELAY_BLUESKY_PDS_URL is unset; an empty base falls back to the
// public PDS.
func Load(basePDSURL string) (Config, error) {
	cfg := Config{
		Twitter: Twitter{
			APIKey:       strings.TrimSpace(os.Getenv(envTwitterAPIKey)),
			APISecret:    strings.TrimSpace(os.Getenv(envTwitterAPISecret)),
			AccessToken:  strings.TrimSpace(os.Getenv(envTwitterAccessToken)),
			AccessSecret: strings.TrimSpace(os.Getenv(envTwitterAccessSecret)),
		},
		PDSURL: strings.TrimSpace(os.Getenv(envPDSURL)),
	}

	if cfg.PDSURL == "" {
		cfg.PDSURL = strings.TrimSpace(basePDSURL)
	}
	if cfg.PDSURL == "" {
		cfg.PDSURL = defaultPDSURL
	}

	var missing []string
	if cfg.Twitter.APIKey == "" {
		missing = append(missing, envTwitterAPIKey)
	}
	if cfg.Twitter.APISecret == "" {
		missing = append(missing, envTwitterAPISecret)
	}
	if cfg.Twitter.AccessToken == "" {
		missing = append(missing, envTwitterAccessToken)
	}
	if cfg.Twitter.AccessSecret == "" {
		missing = append(missing, envTwitterAccessSecret)
	}
	if len(missing) > 0 {
		return Config{}, relay.MissingEnvError{Component: "twitter", Variables: missing}
	}

	pairs, err := loadPairs()
	if err != nil {
		return Config{}, err
	}
	cfg.Pairs = pairs

	return cfg, nil
}

func loadPairs() ([]relay.AccountPair, error) {
	var pairs []relay.AccountPair

	for n := 1; ; n++ {
		sourceVar := fmt.Sprintf("%s%d", envSourceHandlePrefix, n)
		destVar := fmt.Sprintf("%s%d", envDestHandlePrefix, n)
		passVar := fmt.Sprintf("%s%d", envDestPasswordPrefix, n)

		pair := relay.AccountPair{
			SourceHandle: strings.TrimSpace(os.Getenv(sourceVar)),
			DestHandle:   strings.TrimSpace(os.Getenv(destVar)),
			DestPassword: strings.TrimSpace(os.Getenv(passVar)),
		}

		if pair.SourceHandle == "" && pair.DestHandle == "" && pair.DestPassword == "" {
			break
		}

		var missing []string
		if pair.SourceHandle == "" {
			missing = append(missing, sourceVar)
		}
		if pair.DestHandle == "" {
			missing = append(missing, destVar)
		}
		if pair.DestPassword == "" {
			missing = append(missing, passVar)
		}
		if len(missing) > 0 {
			return nil, relay.MissingEnvError{Component: fmt.Sprintf("account pair %d", n), Variables: missing}
		}

		pairs = append(pairs, pair)
	}

	if len(pairs) == 0 {
		return nil, relay.MissingEnvError{
			Component: "account pairs",
			Variables: []string{envSourceHandlePrefix + "1", envDestHandlePrefix + "1", envDestPasswordPrefix + "1"},
		}
	}

	return pairs, nil
}
