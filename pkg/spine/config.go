package spine

// EvaporationConfig holds the position-dependent evaporation model
// parameters (spec §4.3, §9's "evaporation" config section: interior/edge
// rates, min-volume multiplier).
type EvaporationConfig struct {
	// InteriorRatePerH is the fractional volume loss per hour for an
	// interior well.
	InteriorRatePerH float64
	// EdgeMultiplier scales the interior rate for edge wells (spec says
	// "edge wells evaporate ~4x interior").
	EdgeMultiplier float64
	// MinVolumeMultiplier floors volume at this fraction of the vessel's
	// seeded initial volume (spec default 0.70).
	MinVolumeMultiplier float64
	// PlateRows and PlateCols size the plate grid used to classify a
	// position string as edge or interior (default: 384-well, 16x24).
	PlateRows int
	PlateCols int
}

// DefaultEvaporationConfig returns the spec's literal defaults.
func DefaultEvaporationConfig() EvaporationConfig {
	return EvaporationConfig{
		InteriorRatePerH:    0.0015,
		EdgeMultiplier:      4.0,
		MinVolumeMultiplier: 0.70,
		PlateRows:           16,
		PlateCols:           24,
	}
}
