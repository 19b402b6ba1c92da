package rod

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/logger"
	"screen-agent/internal/infrastructure/retry"
)

const clickHTML = `<!DOCTYPE html>
<html>
<body style="margin:0">
	<button id="btn" style="position:absolute;left:10px;top:10px;width:100px;height:40px">Click Me</button>
	<input id="field" style="position:absolute;left:10px;top:100px;width:200px;height:30px" />
	<div id="result"></div>
	<script>
		document.getElementById('btn').addEventListener('click', function() {
			document.getElementById('result').textContent = 'Clicked!';
		});
	</script>
</body>
</html>`

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Headless)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, "about:blank", cfg.StartURL)
	assert.Equal(t, 1.0, cfg.DeviceScale)
}

func TestPoint_DeviceScale(t *testing.T) {
	a := &Automation{cfg: Config{DeviceScale: 2}}
	assert.Equal(t, proto.Point{X: 50, Y: 25}, a.point(100, 50))
}

func newTestAutomation(t *testing.T) *Automation {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests are skipped in short mode")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no local Chromium found")
	}

	cfg := DefaultConfig()
	cfg.Headless = true
	cfg.NoSandbox = true
	a, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func serve(t *testing.T, html string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestAutomation_ClickAndType(t *testing.T) {
	a := newTestAutomation(t)
	ctx := context.Background()
	require.NoError(t, a.Navigate(ctx, serve(t, clickHTML)))

	require.NoError(t, a.Perform(ctx, output.Command{Action: entity.ActionLeftClick, X: 60, Y: 30}))
	assert.Eventually(t, func() bool {
		return a.page.MustElement("#result").MustText() == "Clicked!"
	}, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, a.Perform(ctx, output.Command{Action: entity.ActionTypeText, X: 110, Y: 115, Text: "neural networks"}))
	assert.Equal(t, "neural networks", a.page.MustElement("#field").MustProperty("value").String())
}

func TestAutomation_UnsupportedAction(t *testing.T) {
	a := newTestAutomation(t)
	err := a.Perform(context.Background(), output.Command{Action: "WIGGLE", X: 1, Y: 1})
	assert.ErrorContains(t, err, "unsupported action")
}

func TestAutomation_Capture(t *testing.T) {
	a := newTestAutomation(t)
	path := filepath.Join(t.TempDir(), "page.png")

	require.NoError(t, a.Capture(context.Background(), path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

const formHTML = `<!DOCTYPE html>
<html>
<body style="margin:0">
	<input type="search" style="position:absolute;left:20px;top:20px;width:300px;height:30px" />
	<button style="position:absolute;left:340px;top:20px;width:80px;height:30px">Go</button>
	<a href="#next" style="position:absolute;left:20px;top:80px">Next</a>
	<button style="position:absolute;left:20px;top:3000px">Below the fold</button>
	<button style="display:none">Hidden</button>
</body>
</html>`

func TestDOMQueries_KnownTypes(t *testing.T) {
	vocab := entity.DefaultVocabulary()
	for _, q := range domQueries {
		assert.True(t, vocab.Contains(q.label), q.label)
		assert.Greater(t, q.confidence, 0.0)
		assert.LessOrEqual(t, q.confidence, 1.0)
	}
}

func TestDOMDetector_RequiresLatestCapture(t *testing.T) {
	d := NewDOMDetector(&Automation{}, 0, logger.NewNop())
	assert.Equal(t, defaultMaxElements, d.maxElements)

	_, err := d.Detect(context.Background(), "other.png")
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))

	_, err = d.Detect(context.Background(), "")
	require.Error(t, err, "no capture yet must not reach the page")
	assert.True(t, retry.IsPermanent(err))
}

func TestDOMDetector_Detect(t *testing.T) {
	a := newTestAutomation(t)
	ctx := context.Background()
	require.NoError(t, a.Navigate(ctx, serve(t, formHTML)))

	path := filepath.Join(t.TempDir(), "form.png")
	require.NoError(t, a.Capture(ctx, path))
	assert.Equal(t, path, a.LastCapture())

	dets, err := NewDOMDetector(a, 0, logger.NewNop()).Detect(ctx, path)
	require.NoError(t, err)

	labels := make(map[string]int)
	for _, d := range dets {
		labels[d.Label]++
		assert.Equal(t, path, d.Screenshot)
		assert.False(t, d.Box.IsZero())
	}
	assert.Equal(t, 1, labels[string(entity.ElementSearchBar)])
	assert.Equal(t, 1, labels[string(entity.ElementButton)], "off-screen and hidden buttons are skipped")
	assert.Equal(t, 1, labels[string(entity.ElementLink)])
	assert.Zero(t, labels[string(entity.ElementTextInput)], "search input is not reported twice")
}
