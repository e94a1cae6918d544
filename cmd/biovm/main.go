// Command biovm runs one demonstration simulation directly against the
// core: seed a vessel, treat it, advance time, measure it, print the final
// run health. It is not a CLI product — the core's Non-goals exclude
// CLI/dashboard surfaces — this is the adapter-layer wiring example the
// teacher's cmd/tarsy/main.go plays for its own service, minus everything
// (HTTP, database, env files) that belongs to surfaces this core excludes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cellvm/biovm/pkg/bvmconfig"
	"github.com/cellvm/biovm/pkg/epistemic"
	"github.com/cellvm/biovm/pkg/eventlog"
	"github.com/cellvm/biovm/pkg/world"
)

func main() {
	configPath := flag.String("config", "", "path to a biology parameter YAML file (empty uses built-in defaults)")
	seed := flag.Uint64("seed", 42, "root RNG seed")
	hours := flag.Float64("hours", 48, "total simulated hours to advance")
	stepHours := flag.Float64("step-hours", 6, "hours advanced per cycle")
	flag.Parse()

	log := slog.With("component", "cmd/biovm")

	resolved, err := bvmconfig.Load(*configPath)
	if err != nil {
		log.Error("failed to load biology config", "error", err)
		os.Exit(1)
	}

	w := world.New(world.Config{
		RootSeed:    *seed,
		Evaporation: resolved.Evaporation,
		Biology:     resolved.Biology,
		Noise:       resolved.Noise,
		Epistemic:   resolved.Epistemic,
	}, nil)

	preset, ok := resolved.Seeding["384well_A"]
	if !ok {
		log.Error("no '384well_A' seeding preset in resolved config")
		os.Exit(1)
	}

	if _, err := w.Submit(preset.Payload("W1", "H12"), 0, nil); err != nil {
		log.Error("failed to submit seed event", "error", err)
		os.Exit(1)
	}
	if _, err := w.Submit(eventlog.TreatCompoundPayload{VesselID: "W1", CompoundID: "X", DoseUM: 10}, 0, nil); err != nil {
		log.Error("failed to submit treat event", "error", err)
		os.Exit(1)
	}
	if err := w.FlushNow(); err != nil {
		log.Error("failed to flush initial events", "error", err)
		os.Exit(1)
	}

	for cycle := 0; w.NowH() < *hours; cycle++ {
		if err := w.AdvanceTime(*stepHours); err != nil {
			log.Error("advance_time failed", "error", err, "now_h", w.NowH())
			os.Exit(1)
		}

		actionID := fmt.Sprintf("measure-viability-%d", cycle)
		if err := w.Epistemic().ClaimAction(actionID, "measure_viability", 1.0, nil, 0.5, w.NowH()); err != nil {
			log.Error("claim_action failed", "error", err)
			os.Exit(1)
		}
		obs, err := w.Measure("W1", actionID, w.NowH())
		if err != nil {
			log.Error("measure failed", "error", err)
			os.Exit(1)
		}
		if err := w.Epistemic().ResolveAction(actionID, 1.0, epistemic.SourceNarrowing); err != nil {
			log.Error("resolve_action failed", "error", err)
			os.Exit(1)
		}
		log.Info("cycle complete",
			"now_h", w.NowH(),
			"viability", obs.Viability,
			"observed_cell_count", obs.ObservedCellCount,
			"cytotox_signal", obs.CytotoxSignal)
	}

	health := w.Health()
	out, err := json.MarshalIndent(health, "", "  ")
	if err != nil {
		log.Error("failed to marshal run health", "error", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}
