package ranges

// Grid is the 13x13 hand-class matrix, rows and columns ordered A down to 2.
// Pairs sit on the diagonal, suited hands above it (row = high card) and
// offsuit hands below it (column = high card).
type Grid [13][13]bool

// index of a rank in A..2 order.
func index(rank int) int { return 14 - rank }

// Cell returns the grid position of a class. Any maps to the suited cell;
// use Mark to set both halves.
func (c Class) Cell() (row, col int) {
	hi, lo := index(c.High), index(c.Low)
	if c.Kind == Offsuit {
		return lo, hi
	}
	return hi, lo
}

func (g *Grid) Mark(c Class) {
	switch c.Kind {
	case Any:
		g.Mark(Class{Suited, c.High, c.Low})
		g.Mark(Class{Offsuit, c.High, c.Low})
	default:
		r, col := c.Cell()
		g[r][col] = true
	}
}

// Count is the number of marked cells.
func (g *Grid) Count() int {
	n := 0
	for _, row := range g {
		for _, v := range row {
			if v {
				n++
			}
		}
	}
	return n
}

// Matrix renders the grid as 0/1 floats for JSON clients.
func (g *Grid) Matrix() [][]float64 {
	out := make([][]float64, 13)
	for i, row := range g {
		out[i] = make([]float64, 13)
		for j, v := range row {
			if v {
				out[i][j] = 1
			}
		}
	}
	return out
}

// Classes returns the distinct hand classes named by text, in grid order
// (row-major), with AK-style tokens split into their suited and offsuit
// halves.
func Classes(text string) ([]Class, []string, error) {
	g, warnings, err := BuildGrid(text)
	if err != nil {
		return nil, nil, err
	}
	var out []Class
	for i := 0; i < 13; i++ {
		for j := 0; j < 13; j++ {
			if !g[i][j] {
				continue
			}
			out = append(out, ClassAt(i, j))
		}
	}
	return out, warnings, nil
}

// ClassAt is the class shown at a grid position.
func ClassAt(row, col int) Class {
	switch {
	case row == col:
		return Class{Pair, 14 - row, 14 - row}
	case row < col:
		return Class{Suited, 14 - row, 14 - col}
	}
	return Class{Offsuit, 14 - col, 14 - row}
}

// BuildGrid marks every class named by text.
func BuildGrid(text string) (Grid, []string, error) {
	var g Grid
	classes, warnings, err := parse(text)
	if err != nil {
		return g, nil, err
	}
	for _, c := range classes {
		g.Mark(c)
	}
	return g, warnings, nil
}
