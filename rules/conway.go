package rules

/*
NextState applies Conway's Game of Life rules to determine the next state of a cell.

	neighbors < 2  -> dead (underpopulation)
	neighbors == 3 -> alive (birth or survival)
	neighbors == 2 -> unchanged (survival only)
	neighbors > 3  -> dead (overpopulation)
*/
func NextState(neighbors int, alive bool) bool {
	switch {
	case neighbors < 2:
		return false
	case neighbors == 3:
		return true
	case neighbors == 2:
		return alive
	default:
		return false
	}
}
