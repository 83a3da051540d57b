package visionmate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/visionmate/internal/config"
	"github.com/teslashibe/visionmate/pkg/camera"
	"github.com/teslashibe/visionmate/pkg/capture"
	"github.com/teslashibe/visionmate/pkg/controller"
	"github.com/teslashibe/visionmate/pkg/platform"
	"github.com/teslashibe/visionmate/pkg/speech"
)

func captionServer(t *testing.T, caption string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"caption":"` + caption + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(endpoint string) config.Config {
	cfg := config.DefaultConfig()
	cfg.CaptionEndpoint = endpoint
	cfg.Audio = config.AudioNone
	cfg.Cues = "off"
	return cfg
}

type started struct {
	app    *App
	engine *speech.Mock
	device *camera.MockDevice
	ctx    context.Context
}

func startApp(t *testing.T, endpoint string) *started {
	t.Helper()
	engine := speech.NewMock(speech.Voice{ID: "samantha", Locale: "en-US"})
	device := &camera.MockDevice{Size: image4x3()}

	a, err := New(testConfig(endpoint), WithDevice(device), WithEngine(engine))
	require.NoError(t, err)
	require.NoError(t, a.Init())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		a.Shutdown()
	})
	a.setContext(ctx)
	a.server.StartHubs(ctx)
	return &started{app: a, engine: engine, device: device, ctx: ctx}
}

func waitFor(t *testing.T, sess interface{ Snapshot() controller.Snapshot }, s controller.State) controller.Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return sess.Snapshot().State == s
	}, 5*time.Second, 5*time.Millisecond, "waiting for %s", s)
	return sess.Snapshot()
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(config.DefaultConfig())
	var ce *config.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "CaptionEndpoint", ce.Field)
}

func TestStartSessionBeforeRun(t *testing.T) {
	a, err := New(testConfig("http://localhost:1/caption"), WithDevice(&camera.MockDevice{}))
	require.NoError(t, err)
	require.NoError(t, a.Init())
	defer a.Shutdown()

	_, err = a.startSession(platform.Touch)
	assert.Error(t, err)
}

func TestPointerSessionEndToEnd(t *testing.T) {
	srv := captionServer(t, "a mug on a desk")
	st := startApp(t, srv.URL)

	sess, err := st.app.startSession(platform.Pointer)
	require.NoError(t, err)

	waitFor(t, sess, controller.StateCameraReady)
	assert.Equal(t, 1, st.device.Live())

	require.NoError(t, sess.Tap())
	snap := waitFor(t, sess, controller.StateResult)
	assert.Equal(t, "a mug on a desk", snap.Caption)
	assert.NotEmpty(t, snap.ImageURL)

	require.Eventually(t, func() bool {
		for _, text := range st.engine.Texts() {
			if text == st.app.prompts.Caption("a mug on a desk") {
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, st.device.Live(), "camera closes after the result")
}

func TestTouchSessionEndToEnd(t *testing.T) {
	srv := captionServer(t, "a green apple")
	st := startApp(t, srv.URL)

	sess, err := st.app.startSession(platform.Touch)
	require.NoError(t, err)
	waitFor(t, sess, controller.StateLocked)

	require.NoError(t, sess.Tap())
	require.Eventually(t, func() bool { return sess.Snapshot().Armed }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, sess.Tap())
	require.Eventually(t, st.app.picker.Armed, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, st.app.picker.Deliver(capture.File{
		Name:        "photo.jpg",
		ContentType: "image/jpeg",
		Data:        jpegBytes(t),
	}))

	snap := waitFor(t, sess, controller.StateResult)
	assert.Equal(t, "a green apple", snap.Caption)
	assert.Equal(t, 0, st.device.Opens(), "touch sessions never open the camera")
}

func TestInitSpeechBackends(t *testing.T) {
	t.Run("log without tts", func(t *testing.T) {
		a, err := New(testConfig("http://localhost:1/caption"), WithDevice(&camera.MockDevice{}))
		require.NoError(t, err)
		require.NoError(t, a.Init())
		defer a.Shutdown()

		_, ok := a.engine.(*speech.LogEngine)
		assert.True(t, ok)
		assert.Nil(t, a.ttsEngine)
	})

	t.Run("fallback endpoint only", func(t *testing.T) {
		cfg := testConfig("http://localhost:1/caption")
		cfg.TTSFallbackURL = "http://localhost:1/v1"
		a, err := New(cfg, WithDevice(&camera.MockDevice{}))
		require.NoError(t, err)
		require.NoError(t, a.Init())
		defer a.Shutdown()

		require.NotNil(t, a.ttsEngine)
		require.NoError(t, a.ttsEngine.LoadVoices(context.Background()))
		assert.NotEmpty(t, a.ttsEngine.Voices())
	})
}
