package bvmconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsBuiltinDefaults(t *testing.T) {
	resolved, err := Load("")
	require.NoError(t, err)
	assert.Contains(t, resolved.Biology.CellLines, "A")
	assert.InDelta(t, 0.029, resolved.Biology.CellLines["A"].IntrinsicGrowthPerH, 1e-9)
	assert.InDelta(t, 12.0, resolved.Biology.AttritionThresholdH, 1e-9)
	assert.Contains(t, resolved.Seeding, "384well_A")
}

func TestLoadMergesUserOverridesOverBuiltin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "biology.yaml")
	yamlContent := `
cell_lines:
  A:
    intrinsic_growth_per_h: 0.05
    lag_phase_h: 2
    compound_ic50_um:
      X: 10
    compound_hill_slope:
      X: 2.0
    max_hazard_per_compound_per_h: 0.04
attrition_threshold_h: 6
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	resolved, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, resolved.Biology.CellLines["A"].IntrinsicGrowthPerH, 1e-9)
	assert.InDelta(t, 6.0, resolved.Biology.AttritionThresholdH, 1e-9)
	// Untouched sections still come from the builtin defaults.
	assert.InDelta(t, 0.0015, resolved.Evaporation.InteriorRatePerH, 1e-9)
	assert.Contains(t, resolved.Noise.Channels, "actin")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "biology.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_real_field: true\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/biology.yaml")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, loadErr.Err, ErrConfigNotFound)
}

func TestLoadRejectsInvalidCellLineGrowthRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "biology.yaml")
	yamlContent := `
cell_lines:
  A:
    intrinsic_growth_per_h: -1
    lag_phase_h: 4
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestLoadRejectsSeedingWithUnknownCellLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "biology.yaml")
	yamlContent := `
seeding:
  custom:
    cell_line: ghost
    initial_cells: 1000
    initial_volume_ul: 50
    vessel_capacity_cells: 20000
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestLoadExposesOsmoticContaminationAndNoiseSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "biology.yaml")
	yamlContent := `
contamination:
  enabled: true
osmotic:
  volume_loss_threshold: 0.4
biology_noise:
  growth_noise_sigma: 0.05
treatment:
  commitment_delay_max_h: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	resolved, err := Load(path)
	require.NoError(t, err)
	assert.True(t, resolved.Biology.ContaminationEnabled)
	assert.InDelta(t, 0.4, resolved.Biology.OsmoticVolumeLossThreshold, 1e-9)
	assert.InDelta(t, 0.05, resolved.Biology.GrowthNoiseSigma, 1e-9)
	assert.InDelta(t, 2.0, resolved.Biology.CommitmentDelayMaxH, 1e-9)
	// Untouched fields in partially-overridden sections keep builtin values.
	assert.InDelta(t, 0.03, resolved.Biology.OsmoticHazardPerH, 1e-9)
	assert.InDelta(t, 0.10, resolved.Biology.HazardNoiseSigma, 1e-9)
}

func TestSeedingPresetBuildsPayload(t *testing.T) {
	resolved, err := Load("")
	require.NoError(t, err)
	preset := resolved.Seeding["384well_A"]
	payload := preset.Payload("W1", "H12")
	assert.Equal(t, "W1", payload.VesselID)
	assert.Equal(t, "H12", payload.Position)
	assert.Equal(t, "A", payload.CellLine)
	assert.InDelta(t, 3000.0, payload.InitialCells, 1e-9)
}
