package config

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAndLoadConfig_Defaults(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())

	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
	require.NotNil(t, cfg.Timeout)
	assert.Equal(t, 30000, *cfg.Timeout)
	assert.False(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetDownload())
	assert.True(t, cfg.GetRejectUnauthorized())
}

func TestFindAndLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	content := `
timeout: 500
followRedirects: true
maxRedirects: 3
headers:
  User-Agent: hitwire-test
journal: ./journal.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hitwire.yaml"), []byte(content), 0644))

	cfg, err := FindAndLoadConfig(dir)

	require.NoError(t, err)
	assert.Equal(t, IntPtr(500), cfg.Timeout)
	assert.True(t, cfg.GetFollowRedirects())
	assert.Equal(t, 3, cfg.MaxRedirects)
	assert.Equal(t, "hitwire-test", cfg.Headers["User-Agent"])
	assert.Equal(t, "./journal.db", cfg.Journal)
	assert.Equal(t, 10, cfg.Concurrency, "unset fields keep defaults")
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hitwire.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"timeout": -1, "download": false}`), 0644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, IntPtr(-1), cfg.Timeout)
	assert.False(t, cfg.GetDownload())
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".hitwirerc")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1"}

	merged := base.Merge(&Config{
		Timeout:         IntPtr(250),
		FollowRedirects: BoolPtr(true),
		Headers:         map[string]string{"B": "2"},
	})

	assert.Equal(t, IntPtr(250), merged.Timeout)
	assert.True(t, merged.GetFollowRedirects())
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, merged.Headers)
	assert.Equal(t, map[string]string{"A": "1"}, base.Headers, "receiver is not modified")
	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.Rate = 2.5
			cfg.NoColor = BoolPtr(true)

			require.NoError(t, cfg.SaveConfig(path))
			loaded, err := LoadConfig(path)

			require.NoError(t, err)
			assert.Equal(t, 2.5, loaded.Rate)
			assert.True(t, loaded.GetNoColor())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("HITWIRE_TIMEOUT", "1500")
	t.Setenv("HITWIRE_FOLLOW_REDIRECTS", "true")
	t.Setenv("HITWIRE_RATE", "7.5")
	t.Setenv("HITWIRE_ENVIRONMENT", "production")

	cfg, err := DefaultConfig().ApplyEnv()

	require.NoError(t, err)
	assert.Equal(t, IntPtr(1500), cfg.Timeout)
	assert.True(t, cfg.GetFollowRedirects())
	assert.Equal(t, 7.5, cfg.Rate)
	assert.Equal(t, "production", cfg.Environment)
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("HITWIRE_CONCURRENCY", "many")

	_, err := DefaultConfig().ApplyEnv()
	assert.ErrorContains(t, err, "HITWIRE_CONCURRENCY")
}

func TestApplyEnv_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HITWIRE_MAX_REDIRECTS=4\n"), 0644))
	t.Cleanup(func() { _ = os.Unsetenv("HITWIRE_MAX_REDIRECTS") })

	cfg := DefaultConfig()
	cfg.EnvFile = path
	cfg, err := cfg.ApplyEnv()

	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxRedirects)
}

func TestApply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = IntPtr(200)
	cfg.FollowRedirects = BoolPtr(true)
	cfg.Download = BoolPtr(false)

	desc := &http.Description{URI: "http://example.com"}
	cfg.Apply(desc)

	assert.Equal(t, 200*time.Millisecond, desc.Timeout)
	assert.True(t, desc.Follow)
	require.NotNil(t, desc.Download)
	assert.False(t, *desc.Download)
	assert.Nil(t, desc.RejectUnauthorized)

	explicit := &http.Description{Timeout: time.Second, Download: http.Bool(true)}
	cfg.Apply(explicit)
	assert.Equal(t, time.Second, explicit.Timeout)
	assert.True(t, *explicit.Download)
}

func TestTimeoutDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), (&Config{}).TimeoutDuration())
	assert.Negative(t, (&Config{Timeout: IntPtr(-5)}).TimeoutDuration())
	assert.Negative(t, (&Config{Timeout: IntPtr(0)}).TimeoutDuration())
	assert.Equal(t, 3*time.Second, (&Config{Timeout: IntPtr(3000)}).TimeoutDuration())
}

func TestZeroTimeoutDisablesTimers(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".hitwire.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 0\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, IntPtr(0), cfg.Timeout)

	desc := &http.Description{URI: "http://example.com/"}
	cfg.Apply(desc)
	_, opts, err := http.Build(desc)
	require.NoError(t, err)
	assert.Zero(t, opts.Timeout)
}

func TestMerge_ZeroTimeout(t *testing.T) {
	merged := DefaultConfig().Merge(&Config{Timeout: IntPtr(0)})
	assert.Equal(t, IntPtr(0), merged.Timeout)

	kept := DefaultConfig().Merge(&Config{})
	assert.Equal(t, IntPtr(30000), kept.Timeout)
}

func TestApplyEnv_ZeroTimeout(t *testing.T) {
	t.Setenv("HITWIRE_TIMEOUT", "0")

	cfg, err := DefaultConfig().ApplyEnv()

	require.NoError(t, err)
	assert.Negative(t, cfg.TimeoutDuration())
}

func TestClientOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Headers = map[string]string{"X-Test": "1"}

	opts := cfg.ClientOptions(zerolog.Nop())
	assert.Len(t, opts, 4)
	assert.NotNil(t, http.NewClient(opts...))
}

func TestClientOptions_DefaultHeadersSent(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_, _ = w.Write([]byte(r.Header.Get("X-Team") + "|" + r.Header.Get("Accept")))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Headers = map[string]string{"X-Team": "edge", "Accept": "text/plain"}
	client := http.NewClient(cfg.ClientOptions(zerolog.Nop())...)

	tx, err := client.Fetch(context.Background(), server.URL, http.Header{"accept": {"application/json"}})

	require.NoError(t, err)
	require.NoError(t, tx.Info.Error)
	assert.Equal(t, "edge|application/json", tx.BodyString())
}
