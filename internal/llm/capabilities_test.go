package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilitiesForModel(t *testing.T) {
	t.Run("static table wins", func(t *testing.T) {
		p := &stubProvider{id: ProviderAnthropic}
		caps, known := CapabilitiesForModel(context.Background(), p, "stub-model", "")
		assert.True(t, known)
		assert.False(t, caps.Tools)
	})

	t.Run("unknown model is optimistic", func(t *testing.T) {
		p := &stubProvider{id: ProviderOpenAI}
		supports, known := SupportsToolsForModel(context.Background(), p, "other", "")
		assert.False(t, known)
		assert.True(t, supports)
	})

	t.Run("openrouter catalogue is fetched once and cached", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"data":[
				{"id":"vendor/vision","supported_parameters":["tools","max_tokens"],"architecture":{"input_modalities":["text","image"]}},
				{"id":"vendor/text","supported_parameters":["max_tokens"],"architecture":{"modality":"text->text"}}
			]}`)
		}))
		defer srv.Close()

		orig := openRouterModelsURL
		openRouterModelsURL = srv.URL
		capCache.reset()
		t.Cleanup(func() {
			openRouterModelsURL = orig
			capCache.reset()
		})

		p, err := NewOpenRouterProvider("or-key", "")
		require.NoError(t, err)

		caps, known := CapabilitiesForModel(context.Background(), p, "vendor/vision", "or-key")
		require.True(t, known)
		assert.Equal(t, ModelCapabilities{Tools: true, Vision: true}, caps)

		caps, known = CapabilitiesForModel(context.Background(), p, "vendor/text", "or-key")
		require.True(t, known)
		assert.Equal(t, ModelCapabilities{}, caps)

		assert.EqualValues(t, 1, hits.Load())
	})
}

func TestSupportsImagesInOpenRouter(t *testing.T) {
	assert.True(t, supportsImagesInOpenRouter(map[string]any{
		"architecture": map[string]any{"modality": "text+image->text"},
	}))
	assert.False(t, supportsImagesInOpenRouter(map[string]any{}))
}
