package rules

import (
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htapia/convoca/core"
)

func TestAllCombinations(t *testing.T) {
	t.Parallel()
	words, err := AllCombinations(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 3}, words.Shape)

	want := []float32{
		0, 0, 0,
		0, 0, 1,
		0, 1, 0,
		0, 1, 1,
		1, 0, 0,
		1, 0, 1,
		1, 1, 0,
		1, 1, 1,
	}
	if diff := cmp.Diff(want, words.Data); diff != "" {
		t.Errorf("AllCombinations mismatch (-want +got):\n%s", diff)
	}

	ternary, err := AllCombinations(3, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1}, ternary.Data[7*2:8*2])

	_, err = AllCombinations(1, 3)
	assert.ErrorIs(t, err, ErrTable)
}

func TestWordIndexMatchesEnumeration(t *testing.T) {
	t.Parallel()
	words, err := AllCombinations(2, 9)
	require.NoError(t, err)
	for k := 0; k < words.Dim(0); k++ {
		idx, err := WordIndex(words.Data[k*9 : (k+1)*9])
		require.NoError(t, err)
		require.Equal(t, k, idx)
	}

	_, err = WordIndex([]float32{0, 2})
	assert.ErrorIs(t, err, ErrNotBinary)
}

func TestParseNeighborhood(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"von neumann", "von_neumann", "Von-Neumann", ""} {
		nb, err := ParseNeighborhood(s)
		require.NoError(t, err, s)
		assert.Equal(t, VonNeumann, nb)
	}
	_, err := ParseNeighborhood("moore-5")
	assert.ErrorIs(t, err, ErrNeighborhood)
	assert.Equal(t, 1, VonNeumann.Padding())
	assert.Equal(t, 9, VonNeumann.Cells())
}

func TestTableValidation(t *testing.T) {
	t.Parallel()
	word := func(vals ...int) *core.Tensor {
		w, _ := core.FromInts(vals, len(vals)/9, 9)
		return w
	}

	tests := []struct {
		name    string
		table   *Table
		wantErr error
	}{
		{
			name:    "bad neighborhood",
			table:   &Table{Neighborhood: "hex", Words: word(0, 0, 0, 0, 0, 0, 0, 0, 0), Symbols: []float32{1}},
			wantErr: ErrNeighborhood,
		},
		{
			name:    "symbol count",
			table:   &Table{Neighborhood: VonNeumann, Words: word(0, 0, 0, 0, 0, 0, 0, 0, 0), Symbols: []float32{1, 0}},
			wantErr: ErrTable,
		},
		{
			name:    "non binary word",
			table:   &Table{Neighborhood: VonNeumann, Words: word(0, 0, 0, 0, 2, 0, 0, 0, 0), Symbols: []float32{1}},
			wantErr: ErrNotBinary,
		},
		{
			name:    "non binary symbol",
			table:   &Table{Neighborhood: VonNeumann, Words: word(0, 0, 0, 0, 1, 0, 0, 0, 0), Symbols: []float32{0.5}},
			wantErr: ErrNotBinary,
		},
		{
			name: "duplicate word",
			table: &Table{Neighborhood: VonNeumann, Words: word(
				0, 0, 0, 0, 1, 0, 0, 0, 0,
				0, 0, 0, 0, 1, 0, 0, 0, 0,
			), Symbols: []float32{1, 0}},
			wantErr: ErrTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.table.Validate(), tt.wantErr)
		})
	}
}

func TestPartialTableLookup(t *testing.T) {
	t.Parallel()
	words, _ := core.FromInts([]int{
		0, 0, 0, 0, 1, 0, 0, 0, 0,
		1, 1, 1, 1, 1, 1, 1, 1, 1,
	}, 2, 9)
	table, err := NewTable(VonNeumann, words, []float32{0, 1})
	require.NoError(t, err)

	s, ok := table.Lookup([]float32{1, 1, 1, 1, 1, 1, 1, 1, 1})
	assert.True(t, ok)
	assert.Equal(t, float32(1), s)

	_, ok = table.Lookup(make([]float32, 9))
	assert.False(t, ok)

	outputs := table.Outputs()
	assert.Len(t, outputs, 512)
	assert.Equal(t, float32(1), outputs[511])
	assert.Equal(t, float32(0), outputs[16])
}

func TestGameOfLifeTable(t *testing.T) {
	t.Parallel()
	life := GameOfLife()
	require.NoError(t, life.Validate())
	assert.Equal(t, 512, life.Len())

	tests := []struct {
		name string
		word []float32
		want float32
	}{
		{"lonely dies", []float32{0, 0, 0, 0, 1, 0, 0, 0, 0}, 0},
		{"two neighbours survive", []float32{1, 0, 0, 0, 1, 0, 0, 0, 1}, 1},
		{"three neighbours birth", []float32{1, 1, 1, 0, 0, 0, 0, 0, 0}, 1},
		{"two neighbours no birth", []float32{1, 1, 0, 0, 0, 0, 0, 0, 0}, 0},
		{"overcrowded", []float32{1, 1, 1, 1, 1, 0, 0, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, life.Apply(tt.word))
		})
	}

	// B3/S23 turns on 140 of the 512 neighbourhoods
	on := 0
	for _, s := range life.Outputs() {
		on += int(s)
	}
	assert.Equal(t, 140, on)
}

func TestParseRuleString(t *testing.T) {
	t.Parallel()
	life, err := ParseRuleString("b3/s23")
	require.NoError(t, err)
	assert.Equal(t, GameOfLife().Outputs(), life.Outputs())

	reversed, err := ParseRuleString("S23/B3")
	require.NoError(t, err)
	assert.Equal(t, life.Outputs(), reversed.Outputs())

	seeds, err := ParseRuleString("B2/S")
	require.NoError(t, err)
	assert.Equal(t, float32(0), seeds.Apply([]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}))

	for _, bad := range []string{"B3", "B9/S23", "X3/S23", "B3/B3", "/S23"} {
		_, err := ParseRuleString(bad)
		assert.ErrorIs(t, err, ErrTable, bad)
	}
}

func TestPresets(t *testing.T) {
	t.Parallel()
	names := Presets()
	require.Contains(t, names, "life")
	for _, name := range names {
		table, err := Preset(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, table.Name)
	}
	_, err := Preset("nope")
	assert.ErrorIs(t, err, ErrTable)
}

func rowSums(walk *core.Tensor) []int {
	n := walk.Dim(1)
	sums := make([]int, walk.Dim(0))
	for r := range sums {
		for _, v := range walk.Data[r*n : (r+1)*n] {
			sums[r] += int(v)
		}
	}
	return sums
}

func TestTableWalkUnconstrained(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(3))
	walk, err := TableWalk(16, nil, rng)
	require.NoError(t, err)
	assert.Equal(t, []int{16, 16}, walk.Shape)

	for r, s := range rowSums(walk) {
		assert.Equal(t, r+1, s)
	}
	// each row contains the previous one
	for r := 1; r < 16; r++ {
		for c := 0; c < 16; c++ {
			if walk.At(r-1, c) == 1 {
				assert.Equal(t, float32(1), walk.At(r, c))
			}
		}
	}
}

func TestTableWalkPassesThroughKnownRule(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(11))
	known := []float32{0, 1, 1, 0, 0, 1, 0, 0}
	walk, err := TableWalk(len(known), known, rng)
	require.NoError(t, err)

	assert.Equal(t, known, walk.Row(2).Data)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, rowSums(walk))

	// the first rows only touch entries the known rule has on
	for r := 0; r < 3; r++ {
		for c, v := range walk.Row(r).Data {
			if v == 1 {
				assert.Equal(t, float32(1), known[c])
			}
		}
	}
}

func TestTableWalkErrors(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(1))
	_, err := TableWalk(0, nil, rng)
	assert.ErrorIs(t, err, ErrTable)
	_, err = TableWalk(4, []float32{1, 0}, rng)
	assert.ErrorIs(t, err, ErrTable)
	_, err = TableWalk(2, []float32{1, 3}, rng)
	assert.ErrorIs(t, err, ErrNotBinary)
}

func TestGlider(t *testing.T) {
	t.Parallel()
	g, err := Glider(5)
	require.NoError(t, err)
	want := []float32{
		0, 0, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
		0, 1, 1, 1, 0,
		0, 0, 0, 0, 0,
	}
	if diff := cmp.Diff(want, g.Data); diff != "" {
		t.Errorf("Glider mismatch (-want +got):\n%s", diff)
	}

	rect, err := Glider(4, 6)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 6}, rect.Shape)
	assert.Equal(t, float32(1), rect.At(1, 3))

	_, err = Glider(2)
	assert.ErrorIs(t, err, ErrGliderSize)
	_, err = Glider(3, 3, 3)
	assert.ErrorIs(t, err, ErrGliderSize)
}

func TestRandomStack(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(5))
	s, err := RandomStack(rng, 0.5, 3, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 8, 8}, s.Shape)
	for _, v := range s.Data {
		assert.True(t, v == 0 || v == 1)
	}

	empty, err := Random(rng, 0, 4, 4)
	require.NoError(t, err)
	assert.True(t, empty.Equal(core.New(4, 4)))

	_, err = Random(rng, 1.5, 4, 4)
	assert.Error(t, err)
}

func TestRuleFileRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "highlife.yaml")
	highlife, err := Preset("highlife")
	require.NoError(t, err)

	require.NoError(t, Save(path, highlife))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "highlife", loaded.Name)
	assert.Equal(t, highlife.Outputs(), loaded.Outputs())
}

func TestParseRuleFileForms(t *testing.T) {
	t.Parallel()
	fromRule, err := Parse([]byte("name: conway\nrule: B3/S23\n"))
	require.NoError(t, err)
	assert.Equal(t, "conway", fromRule.Name)

	fromLists, err := Parse([]byte("name: conway\nneighborhood: von_neumann\nbirth: [3]\nsurvive: [2, 3]\n"))
	require.NoError(t, err)
	assert.Equal(t, fromRule.Outputs(), fromLists.Outputs())

	_, err = Parse([]byte("name: both\nrule: B3/S23\nbirth: [3]\n"))
	assert.ErrorIs(t, err, ErrTable)

	_, err = Parse([]byte("outputs: \"0101\"\n"))
	assert.ErrorIs(t, err, ErrTable)

	_, err = Parse([]byte("outputs: \"" + strings.Repeat("2", 512) + "\"\n"))
	assert.ErrorIs(t, err, ErrNotBinary)
}

func TestOutputsDigitsAreRowMajor(t *testing.T) {
	t.Parallel()
	digits := []byte(strings.Repeat("0", 512))
	digits[128] = '1'
	table, err := Parse([]byte("name: top\noutputs: \"" + string(digits) + "\"\n"))
	require.NoError(t, err)

	top := []float32{0, 1, 0, 0, 0, 0, 0, 0, 0}
	idx, err := WordIndex(top)
	require.NoError(t, err)
	assert.Equal(t, 128, idx)
	assert.Equal(t, float32(1), table.Apply(top))

	left := []float32{0, 0, 0, 1, 0, 0, 0, 0, 0}
	assert.Equal(t, float32(0), table.Apply(left))

	centre := []float32{0, 0, 0, 0, 1, 0, 0, 0, 0}
	idx, err = WordIndex(centre)
	require.NoError(t, err)
	assert.Equal(t, 1<<4, idx)
}
