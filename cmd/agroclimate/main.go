// Command agroclimate loads a sectioned configuration file, builds the
// simulation registry it describes, and exposes a few diagnostic
// subcommands over it.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zalf-rpm/agroclimate/climate"
	"github.com/zalf-rpm/agroclimate/config"
	"github.com/zalf-rpm/agroclimate/store"
)

// Version is set at build time via -ldflags; "dev" covers local builds.
var Version = "dev"

var (
	configFile string
	log        = logrus.New()

	cfg *config.Config
	reg *climate.Registry
)

// unwiredSource stands in for the concrete tabular-store driver a
// deployment must supply: it logs a warning on its first query and returns empty
// columns, the same "backing-store failure" behavior store.RowSource
// documents for a real driver that can't satisfy a request.
func unwiredSource(simName string, log logrus.FieldLogger) store.RowSource {
	warned := false
	return store.RowSourceFunc(func(ctx context.Context, q store.Query) (store.Columns, error) {
		if !warned {
			log.WithField("simulation", simName).Warn("agroclimate: no backing-store driver configured, returning empty columns")
			warned = true
		}
		return store.Columns{}, nil
	})
}

var rootCmd = &cobra.Command{
	Use:   "agroclimate",
	Short: "Agro-ecological climate-data access and spatial regionalization.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading config %s: %w", configFile, err)
		}
		cfg = loaded
		reg = buildRegistry(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./agroclimate.ini", "configuration file location")
	rootCmd.AddCommand(versionCmd, simulationsCmd)
}

// buildRegistry turns the parsed config into a climate.Registry. No
// concrete backing-store driver ships with this module (an external
// collaborator, per the config section's own scope), so every simulation
// is wired to a stub store.RowSource that logs and returns empty columns
// — the same "backing-store failure" behavior a real driver must exhibit
// on a query it cannot satisfy.
func buildRegistry(cfg *config.Config) *climate.Registry {
	names := make([]string, 0, len(cfg.Simulations))
	for name := range cfg.Simulations {
		names = append(names, name)
	}
	sort.Strings(names)

	var configs []climate.ProductConfig
	for i, name := range names {
		sim := cfg.Simulations[name]
		if !sim.Enabled {
			continue
		}
		configs = append(configs, climate.ProductConfig{
			ID:               i + 1,
			Name:             name,
			Enabled:          true,
			Source:           unwiredSource(name, log),
			DefaultScenario:  sim.DefaultScenario,
			UsedRealizations: sim.UsedRealizations,
		})
	}
	return climate.NewRegistry(configs, log)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

var simulationsCmd = &cobra.Command{
	Use:   "simulations",
	Short: "List the simulations the configuration file enables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sims := reg.All()
		if len(sims) == 0 {
			fmt.Println("no enabled simulations")
			return nil
		}
		for _, sim := range sims {
			fmt.Printf("%d\t%s\t%d scenario(s)\n", sim.ID, sim.Name, len(sim.Scenarios()))
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
