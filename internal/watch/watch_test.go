package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/Widget.cs", true},
		{"Shop.csproj", true},
		{"out/Shop.symbols.json", true},
		{"README.md", false},
		{"docs/api/Shop.json", false},
		{"Widget.cs.bak", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Relevant(tt.path), tt.path)
	}
}

// startWatcher runs a watcher over root and returns the channel receiving
// each rebuild's changed paths.
func startWatcher(t *testing.T, root string, exclude ...string) <-chan []string {
	t.Helper()
	w, err := New([]string{root}, Options{
		Debounce: 200 * time.Millisecond,
		Exclude:  exclude,
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.Cleanup(func() {
		cancel()
		<-done
	})

	calls := make(chan []string, 8)
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		})
	}()
	return calls
}

func waitRebuild(t *testing.T, calls <-chan []string) []string {
	t.Helper()
	select {
	case changed := <-calls:
		return changed
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild within 5s")
		return nil
	}
}

func TestRunDebouncesChanges(t *testing.T) {
	root := t.TempDir()
	calls := startWatcher(t, root)

	a := filepath.Join(root, "A.cs")
	b := filepath.Join(root, "B.cs")
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(a, []byte("class A {}"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("class B {}"), 0o644))

	changed := waitRebuild(t, calls)
	assert.Equal(t, []string{a, b}, changed)
}

func TestRunWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	calls := startWatcher(t, root)

	sub := filepath.Join(root, "Models")
	require.NoError(t, os.Mkdir(sub, 0o755))
	f := filepath.Join(sub, "Order.cs")
	require.NoError(t, os.WriteFile(f, []byte("class Order {}"), 0o644))

	changed := waitRebuild(t, calls)
	assert.Contains(t, changed, f)
}

func TestRunIgnoresExcludedAndBuildOutput(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "obj"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "Generated"), 0o755))
	calls := startWatcher(t, root, "Generated")

	require.NoError(t, os.WriteFile(filepath.Join(root, "obj", "Tmp.cs"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Generated", "Gen.cs"), []byte("x"), 0o644))
	src := filepath.Join(root, "Real.cs")
	require.NoError(t, os.WriteFile(src, []byte("class Real {}"), 0o644))

	changed := waitRebuild(t, calls)
	assert.Equal(t, []string{src}, changed)
}

func TestNewRequiresRoots(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}
