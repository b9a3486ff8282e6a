package arena

import (
	"fmt"
	"strings"

	"github.com/brensch/hungrysnek/game"
)

// Render draws the board with row 0 at the top. Heads are the first letter
// of the snake's index (A, B, ...), bodies the lower case, food is F.
func Render(state *game.GameState) string {
	if state == nil || state.Width <= 0 || state.Height <= 0 {
		return ""
	}

	grid := make([][]byte, state.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", int(state.Width)))
	}

	for _, f := range state.Food {
		if state.InBounds(f) {
			grid[f.Y][f.X] = 'F'
		}
	}
	for i, s := range state.Snakes {
		head, body := byte('A'+i%26), byte('a'+i%26)
		for j := len(s.Body) - 1; j >= 0; j-- {
			p := s.Body[j]
			if !state.InBounds(p) {
				continue
			}
			if j == 0 {
				grid[p.Y][p.X] = head
			} else {
				grid[p.Y][p.X] = body
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "turn %d\n", state.Turn)
	for _, row := range grid {
		for x, c := range row {
			if x > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(c)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
