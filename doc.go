// Package convoca builds binary cellular automata out of convolution filter
// banks and measures the Shannon entropy of their neighbourhood statistics
// and of the firing patterns of trained networks.
//
// A rule table maps each of the 512 binary 3×3 neighbourhood words to a next
// state. Every word becomes one filter whose rectified response, after
// periodic padding and a bias, is exactly one-hot on binary input, so a
// weighted sum against the table's symbols advances the automaton. Conway's
// Game of Life is also available as a compact five-filter network with a
// two-unit hidden layer.
//
// # Package Structure
//
//   - core: tensors, periodic padding, double-buffered frames, serialization
//   - kernels: float32 convolution, bias, activation and reduction kernels
//   - rules: truth tables, B/S notation, YAML rule files, table walks, initial conditions
//   - automaton: filter banks, step functions, categorization and the batch Engine
//   - entropy: Shannon entropy of activation maps and automaton images
//   - config: viper-backed run settings
//   - store: SQLite persistence of runs and entropy trajectories
//   - cmd/convoca: command-line tool
//
// # Basic Usage
//
//	step, err := automaton.MakeCA(rules.GameOfLife())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	state, _ := rules.Glider(8)
//	next, err := step(state)
//
//	ents, err := entropy.ImageEntropy(next)
package convoca
