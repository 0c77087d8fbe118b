// Package viz provides terminal-based visualization for trajectories
// and vector fields.
//
// The package has two halves: pure renderers, and an interactive TUI
// built on the Bubble Tea framework.
//
//   - [Canvas]: Braille-based pixel canvas
//   - [PhasePortrait], [Scatter]: orbit and point-cloud rendering
//   - [Chart], [ChartMany]: ASCII line charts
//   - [Model]: live view stepping a field in real time
//
// # Key Bindings
//
//	Space - Pause/Resume stepping
//	R     - Reset the orbit
//	Tab   - Select a physical parameter
//	↑/↓   - Adjust the selected parameter
//	?     - Show help overlay
//	Q     - Quit
package viz
