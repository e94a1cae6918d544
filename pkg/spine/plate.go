package spine

import "strconv"

// isEdgeWell classifies a standard plate-coordinate string ("A1".."P24")
// as an edge well (outer ring of rows/columns) given the plate's grid size.
// An unparsable position is treated as interior — evaporation anisotropy is
// a nuisance-level effect, not one that should abort a run over a malformed
// label.
func isEdgeWell(position string, rows, cols int) bool {
	row, col, ok := parsePosition(position)
	if !ok {
		return false
	}
	if row == 0 || row == rows-1 {
		return true
	}
	if col == 0 || col == cols-1 {
		return true
	}
	return false
}

// IsEdgeWell is the exported form of the same classification, for callers
// outside the spine (the assay producer needs it for the edge-well
// measurement penalty, spec §4.6 layer 7).
func IsEdgeWell(position string, cfg EvaporationConfig) bool {
	return isEdgeWell(position, cfg.PlateRows, cfg.PlateCols)
}

// parsePosition parses "A1" style coordinates into zero-based (row, col).
func parsePosition(position string) (row, col int, ok bool) {
	if len(position) < 2 {
		return 0, 0, false
	}
	rowChar := position[0]
	if rowChar < 'A' || rowChar > 'Z' {
		if rowChar >= 'a' && rowChar <= 'z' {
			rowChar -= 'a' - 'A'
		} else {
			return 0, 0, false
		}
	}
	row = int(rowChar - 'A')

	colNum, err := strconv.Atoi(position[1:])
	if err != nil || colNum < 1 {
		return 0, 0, false
	}
	col = colNum - 1
	return row, col, true
}
