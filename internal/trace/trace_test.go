package trace

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecorder_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trace.jsonl")
	rec, err := OpenFile(path)
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, rec.Record(Sample{
				PID:       1000 + i,
				Component: "hip",
				Start:     base,
				End:       base.Add(time.Duration(i) * time.Second),
				CPUTime:   time.Second,
			}))
		}()
	}
	wg.Wait()
	require.NoError(t, rec.Close())

	samples, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, samples, 20)
	pids := make(map[int]bool)
	for _, s := range samples {
		pids[s.PID] = true
		assert.Equal(t, "hip", s.Component)
		assert.True(t, s.Start.Equal(base))
	}
	assert.Len(t, pids, 20)
}

func TestRead(t *testing.T) {
	t.Run("blank lines are skipped", func(t *testing.T) {
		samples, err := Read(strings.NewReader("\n" + `{"pid":1,"component":"a","cmd":"cc"}` + "\n\n"))
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.Equal(t, "cc", samples[0].Command)
	})

	t.Run("malformed line names its number", func(t *testing.T) {
		_, err := Read(strings.NewReader(`{"pid":1}` + "\n" + "{oops"))
		assert.ErrorContains(t, err, "trace line 2")
	})
}

func TestMultiRecorder(t *testing.T) {
	a, b := &MemoryRecorder{}, &MemoryRecorder{}
	require.NoError(t, MultiRecorder{a, b}.Record(Sample{PID: 7}))
	assert.Len(t, a.Samples(), 1)
	assert.Len(t, b.Samples(), 1)
}

func TestSample_Wall(t *testing.T) {
	base := time.Now()
	assert.Equal(t, 3*time.Second, Sample{Start: base, End: base.Add(3 * time.Second)}.Wall())
	assert.Zero(t, Sample{Start: base, End: base.Add(-time.Second)}.Wall())
}

func TestGuessComponent(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"object path", []string{"clang++", "-c", "-o", "src/CMakeFiles/amdhip64.dir/hip_memory.cpp.o"}, "amdhip64"},
		{"first match wins", []string{"CMakeFiles/a.dir/x.o", "CMakeFiles/b.dir/y.o"}, "a"},
		{"no match", []string{"gcc", "main.c"}, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GuessComponent(tc.args...))
		})
	}
}

func TestImportNinjaLog(t *testing.T) {
	log := strings.Join([]string{
		"# ninja log v5",
		"0\t1500\t0\tlib/CMakeFiles/rocblas.dir/gemm.cpp.o\tabc",
		"100\t900\t0\tbin/tool\tdef",
		"2000\t3000\t0\tlib/CMakeFiles/rocblas.dir/gemm.cpp.o\tabc",
		"",
	}, "\n")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	samples, err := ImportNinjaLog(strings.NewReader(log), base, "misc")
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, "rocblas", samples[0].Component)
	assert.Equal(t, base.Add(2*time.Second), samples[0].Start)
	assert.Equal(t, base.Add(3*time.Second), samples[0].End)
	assert.Equal(t, PhaseCompile, samples[0].Phase)

	assert.Equal(t, "misc", samples[1].Component)
	assert.Equal(t, 800*time.Millisecond, samples[1].Wall())

	t.Run("bad header", func(t *testing.T) {
		_, err := ImportNinjaLog(strings.NewReader("hello\n"), base, "x")
		assert.ErrorContains(t, err, "missing header")
	})

	t.Run("old version", func(t *testing.T) {
		_, err := ImportNinjaLog(strings.NewReader("# ninja log v4\n"), base, "x")
		assert.ErrorContains(t, err, "unsupported")
	})

	t.Run("short line", func(t *testing.T) {
		_, err := ImportNinjaLog(strings.NewReader("# ninja log v5\n1\t2\n"), base, "x")
		assert.ErrorContains(t, err, "line 2")
	})
}

func TestCreateFile_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	for _, pid := range []int{1, 2} {
		rec, err := OpenFile(path)
		require.NoError(t, err)
		require.NoError(t, rec.Record(Sample{PID: pid}))
		require.NoError(t, rec.Close())
	}

	rec, err := CreateFile(path)
	require.NoError(t, err)
	require.NoError(t, rec.Record(Sample{PID: 3}))
	require.NoError(t, rec.Close())

	samples, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 3, samples[0].PID)
}
