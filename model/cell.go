package model

// Cell is a single grid position with its committed state and the
// next-state decision computed during a step.
type Cell struct {
	Row int
	Col int

	// Alive is the committed state (true = filled)
	Alive bool
	// MarkedAlive is the pending state; equal to Alive outside a step
	MarkedAlive bool
}

// Commit copies the marked state into the committed state
func (c *Cell) Commit() {
	c.Alive = c.MarkedAlive
}

// set updates both fields so the cell stays consistent at rest
func (c *Cell) set(alive bool) {
	c.Alive = alive
	c.MarkedAlive = alive
}
