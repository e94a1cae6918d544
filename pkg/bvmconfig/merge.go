package bvmconfig

import "dario.cat/mergo"

// mergeDocuments overlays user on top of builtin, one section at a time —
// exactly as the teacher's loader has one mergeAgents/mergeMCPServers/
// mergeChains per top-level YAML section rather than one deep merge over
// the whole document, so each section's override-vs-extend semantics stays
// explicit.
func mergeDocuments(builtin, user *Document) *Document {
	return &Document{
		CellLines:           mergeCellLines(builtin.CellLines, user.CellLines),
		Seeding:             mergeSeeding(builtin.Seeding, user.Seeding),
		Noise:               mergeNoise(builtin.Noise, user.Noise),
		Evaporation:         mergeEvaporation(builtin.Evaporation, user.Evaporation),
		AttritionThresholdH: overrideFloatPtr(builtin.AttritionThresholdH, user.AttritionThresholdH),
		ContactPressure:     mergeContactPressure(builtin.ContactPressure, user.ContactPressure),
		Epistemic:           mergeEpistemic(builtin.Epistemic, user.Epistemic),
		Starvation:          mergeStarvation(builtin.Starvation, user.Starvation),
		StressKinetics:      mergeStressKinetics(builtin.StressKinetics, user.StressKinetics),
		Osmotic:             mergeOsmotic(builtin.Osmotic, user.Osmotic),
		Contamination:       mergeContamination(builtin.Contamination, user.Contamination),
		BiologyNoise:        mergeBiologyNoise(builtin.BiologyNoise, user.BiologyNoise),
		Treatment:           mergeTreatment(builtin.Treatment, user.Treatment),
	}
}

// mergeCellLines merges built-in and user-defined cell lines. A
// user-defined line with the same name replaces the built-in line whole
// (cell-line params are a single coherent parameter set, not a field-by-
// field overlay — partially mixing one line's IC50 with another's growth
// rate would not be a meaningful biology).
func mergeCellLines(builtin, user map[string]CellLineYAML) map[string]CellLineYAML {
	result := make(map[string]CellLineYAML, len(builtin)+len(user))
	for name, line := range builtin {
		result[name] = line
	}
	for name, line := range user {
		result[name] = line
	}
	return result
}

// mergeSeeding merges built-in and user-defined seeding presets the same
// way: user-defined presets override or add to the built-in set by name.
func mergeSeeding(builtin, user map[string]SeedingYAML) map[string]SeedingYAML {
	result := make(map[string]SeedingYAML, len(builtin)+len(user))
	for name, preset := range builtin {
		result[name] = preset
	}
	for name, preset := range user {
		result[name] = preset
	}
	return result
}

func mergeNoise(builtin, user *NoiseYAML) *NoiseYAML {
	if user == nil {
		return builtin
	}
	result := *builtin
	if err := mergo.Merge(&result, user, mergo.WithOverride); err != nil {
		// mergo.Merge only fails on unsupported types; NoiseYAML is all
		// scalars, pointers, and a map of scalars, none of which can
		// trigger that — this is unreachable in practice.
		return builtin
	}
	// Channels merge per-name like the top-level sections, not field-by-
	// field within a channel, for the same reason as cell lines.
	if len(user.Channels) > 0 {
		merged := make(map[string]ChannelYAML, len(builtin.Channels)+len(user.Channels))
		for name, ch := range builtin.Channels {
			merged[name] = ch
		}
		for name, ch := range user.Channels {
			merged[name] = ch
		}
		result.Channels = merged
	}
	return &result
}

func mergeEvaporation(builtin, user *EvaporationYAML) *EvaporationYAML {
	if user == nil {
		return builtin
	}
	result := *builtin
	_ = mergo.Merge(&result, user, mergo.WithOverride)
	return &result
}

func mergeContactPressure(builtin, user *ContactPressureYAML) *ContactPressureYAML {
	if user == nil {
		return builtin
	}
	result := *builtin
	_ = mergo.Merge(&result, user, mergo.WithOverride)
	return &result
}

func mergeEpistemic(builtin, user *EpistemicYAML) *EpistemicYAML {
	if user == nil {
		return builtin
	}
	result := *builtin
	_ = mergo.Merge(&result, user, mergo.WithOverride)
	return &result
}

func mergeStarvation(builtin, user *StarvationYAML) *StarvationYAML {
	if user == nil {
		return builtin
	}
	result := *builtin
	_ = mergo.Merge(&result, user, mergo.WithOverride)
	return &result
}

func mergeStressKinetics(builtin, user *StressKineticsYAML) *StressKineticsYAML {
	if user == nil {
		return builtin
	}
	result := *builtin
	_ = mergo.Merge(&result, user, mergo.WithOverride)
	return &result
}

func mergeOsmotic(builtin, user *OsmoticYAML) *OsmoticYAML {
	if user == nil {
		return builtin
	}
	result := *builtin
	_ = mergo.Merge(&result, user, mergo.WithOverride)
	return &result
}

func mergeContamination(builtin, user *ContaminationYAML) *ContaminationYAML {
	if user == nil {
		return builtin
	}
	result := *builtin
	_ = mergo.Merge(&result, user, mergo.WithOverride)
	return &result
}

func mergeBiologyNoise(builtin, user *BiologyNoiseYAML) *BiologyNoiseYAML {
	if user == nil {
		return builtin
	}
	result := *builtin
	_ = mergo.Merge(&result, user, mergo.WithOverride)
	return &result
}

func mergeTreatment(builtin, user *TreatmentYAML) *TreatmentYAML {
	if user == nil {
		return builtin
	}
	result := *builtin
	_ = mergo.Merge(&result, user, mergo.WithOverride)
	return &result
}

func overrideFloatPtr(builtin, user *float64) *float64 {
	if user != nil {
		return user
	}
	return builtin
}
