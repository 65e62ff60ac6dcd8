package droid_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/acpkit/droid"
)

func TestWatchConfig(t *testing.T) {
	path := writeFile(t, "droid.toml", `model = "first"`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type update struct {
		cfg droid.Config
		err error
	}
	updates := make(chan update, 16)
	done := make(chan error, 1)
	go func() {
		done <- droid.WatchConfig(ctx, path, func(cfg droid.Config, err error) {
			select {
			case updates <- update{cfg, err}:
			default:
			}
		})
	}()

	select {
	case u := <-updates:
		require.NoError(t, u.err)
		assert.Equal(t, "first", u.cfg.Model)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial load")
	}

	// The watcher may not be registered yet; rewrite until a change lands.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		require.NoError(t, os.WriteFile(path, []byte(`model = "second"`), 0o644))
		select {
		case u := <-updates:
			if u.err == nil && u.cfg.Model == "second" {
				cancel()
				select {
				case err := <-done:
					assert.NoError(t, err)
				case <-time.After(5 * time.Second):
					t.Fatal("watcher did not stop")
				}
				return
			}
		case <-tick.C:
		case <-deadline:
			t.Fatal("reload not observed")
		}
	}
}

func TestWatchConfig_InitialError(t *testing.T) {
	path := writeFile(t, "droid.toml", `lsp_framing = "nope"`)
	called := false
	err := droid.WatchConfig(context.Background(), path, func(droid.Config, error) { called = true })
	assert.Error(t, err)
	assert.False(t, called)
}
