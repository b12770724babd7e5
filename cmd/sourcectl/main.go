// Package main is the sourcectl CLI: catalog maintenance and local analysis
// runs against the same stores the API and worker use.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"assignhelper/internal/catalog"
	"assignhelper/internal/config"
	"assignhelper/internal/embedding"
	"assignhelper/internal/pipeline"
	"assignhelper/internal/providers"
	"assignhelper/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "sourcectl",
	Short: "Manage the academic source catalog and run local analyses",
	Long: `sourcectl migrates the schema, ingests academic sources, backfills missing
embeddings, searches the catalog and analyzes a local assignment file.

Settings come from the environment (ASSIGNHELPER_*), an optional
sourcectl.yaml and flags, in increasing order of precedence.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./sourcectl.yaml or ~/.config/assignhelper/sourcectl.yaml)")
	pf.String("backend", "", "catalog backend: postgres or sqlite")
	pf.String("sqlite-path", "", "sqlite catalog file")
	pf.String("postgres-url", "", "postgres connection string")
	pf.String("embed-providers", "", "embedding provider list")
	pf.String("llm-providers", "", "LLM provider list")
	_ = viper.BindPFlag("catalog_backend", pf.Lookup("backend"))
	_ = viper.BindPFlag("sqlite_path", pf.Lookup("sqlite-path"))
	_ = viper.BindPFlag("postgres_url", pf.Lookup("postgres-url"))
	_ = viper.BindPFlag("embed_providers", pf.Lookup("embed-providers"))
	_ = viper.BindPFlag("llm_providers", pf.Lookup("llm-providers"))
}

func initConfig() {
	_ = godotenv.Load(".env")

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sourcectl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "assignhelper"))
		}
	}
	viper.SetEnvPrefix("ASSIGNHELPER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig layers viper values (file, flags) over the env config.
func loadConfig() config.Config {
	cfg := config.Load()
	override := func(key string, dst *string) {
		if v := strings.TrimSpace(viper.GetString(key)); v != "" {
			*dst = v
		}
	}
	override("catalog_backend", &cfg.CatalogBackend)
	override("sqlite_path", &cfg.SQLitePath)
	override("postgres_url", &cfg.PostgresURL)
	override("embed_providers", &cfg.EmbedProviders)
	override("llm_providers", &cfg.LLMProviders)
	override("temporal_address", &cfg.TemporalAddress)
	override("temporal_task_queue", &cfg.TemporalTaskQueue)
	if n := viper.GetInt("embed_dim"); n > 0 {
		cfg.EmbedDim = n
	}
	if n := viper.GetInt("default_top_k"); n > 0 {
		cfg.DefaultTopK = n
	}
	return cfg
}

type runtime struct {
	cfg      config.Config
	db       *storage.DB
	backend  *catalog.Backend
	pm       *providers.Manager
	pipeline *pipeline.Orchestrator
	ingester *catalog.Ingester
}

func openRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}
	if strings.EqualFold(strings.TrimSpace(cfg.CatalogBackend), "sqlite") {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, err
		}
	} else {
		db, err := storage.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		rt.db = db
	}
	backend, err := catalog.OpenBackend(ctx, cfg, rt.db)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.backend = backend
	pm, err := providers.NewManager(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.pm = pm
	rt.pipeline = pipeline.FromManager(cfg, pm, backend.Index)
	rt.ingester = catalog.NewIngester(backend.Store, embedding.NewGenerator(pm.Embedder().Provider, cfg))
	return rt, nil
}

func (rt *runtime) Close() {
	_ = rt.backend.Close()
	rt.db.Close()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
