package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openairdata/campd-client/pkg/client"
	"github.com/openairdata/campd-client/pkg/logging"
	"github.com/openairdata/campd-client/pkg/retrieval"
)

// API endpoints per dataset.
const (
	annualEmissionsEndpoint = "/emissions-mgmt/emissions/apportioned/annual"
	hourlyEmissionsEndpoint = "/streaming-services/emissions/apportioned/hourly"
	bulkCatalogEndpoint     = "/camd-services/bulk-files"
)

var rootCmd = &cobra.Command{
	Use:   "campd-fetch",
	Short: "Download CAMPD emissions, facility, and allowance datasets as CSV",
	Long: `campd-fetch retrieves regulatory datasets from the CAMPD API.

Three retrieval modes are available: paginated annual emissions (one query
per state), time-boxed hourly emissions (single request per date window),
and bulk catalog downloads (pick files from the published manifest).

An API key is required; pass --api-key or set CAMPD_API_KEY.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logging.Config{
			Level:  logging.LogLevel(viper.GetString("log-level")),
			Pretty: viper.GetBool("pretty"),
			Output: cmd.ErrOrStderr(),
		})
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("api-key", "", "CAMPD API key (env CAMPD_API_KEY)")
	pf.String("base-url", client.DefaultBaseURL, "API gateway base URL")
	pf.String("redis", "", "redis address for the shared cache and quota state (optional)")
	pf.Int("page-size", 100, "rows per page for paginated queries")
	pf.Duration("delay", time.Second, "minimum delay between requests of one query")
	pf.Int("retries", 0, "automatic retries for transient errors (0 disables)")
	pf.String("out-dir", ".", "directory for output CSV files")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Bool("pretty", false, "human-readable console logging")

	if err := viper.BindPFlags(pf); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("CAMPD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(annualCmd, hourlyCmd, bulkCmd)
}

// newRetriever builds the retrieval client from the resolved configuration.
func newRetriever() (*retrieval.Retriever, error) {
	apiKey := viper.GetString("api-key")
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured: pass --api-key or set CAMPD_API_KEY")
	}

	cfg := client.DefaultConfig(apiKey)
	cfg.BaseURL = viper.GetString("base-url")
	cfg.MaxRetries = viper.GetInt("retries")

	if addr := viper.GetString("redis"); addr != "" {
		cfg.Redis = redis.NewClient(&redis.Options{Addr: addr})
	}

	c, err := client.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	retrievalCfg := retrieval.DefaultConfig()
	retrievalCfg.PageSize = viper.GetInt("page-size")
	retrievalCfg.PageDelay = viper.GetDuration("delay")

	return retrieval.New(c, retrievalCfg, retrieval.NewLogObserver()), nil
}
