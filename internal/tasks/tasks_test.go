package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/sonance/internal/services"
	"github.com/desertthunder/sonance/internal/shared"
)

type mockAPIClient struct {
	responses map[string]*services.APIResponse
	errs      map[string]error
}

func (m *mockAPIClient) Get(ctx context.Context, path string) (*services.APIResponse, error) {
	if err, ok := m.errs[path]; ok {
		return nil, err
	}
	if resp, ok := m.responses[path]; ok {
		return resp, nil
	}
	return &services.APIResponse{StatusCode: 404, Body: []byte(`{"detail":"Not Found"}`)}, nil
}

func TestLibraryEngine_Dump(t *testing.T) {
	t.Run("collects data and errors", func(t *testing.T) {
		apiClient := &mockAPIClient{
			responses: map[string]*services.APIResponse{
				"/auth/me": {
					StatusCode: 200,
					IsJSON:     true,
					JSONData:   map[string]any{"id": "u1"},
				},
				"/library/playlists": {
					StatusCode: 200,
					IsJSON:     true,
					JSONData:   []any{"playlist1", "playlist2"},
				},
				"/music/tracks": {
					StatusCode: 500,
					Body:       []byte("internal error"),
				},
			},
			errs: map[string]error{"/music/embeddings": errors.New("connection reset")},
		}

		engine := NewLibraryEngine(nil, apiClient, nil)

		progressCh := make(chan ProgressUpdate, 100)
		result, err := engine.Dump(context.Background(), progressCh)
		close(progressCh)

		if err != nil {
			t.Fatalf("Dump() error = %v", err)
		}
		if result.Profile == nil {
			t.Error("Dump() profile should not be nil")
		}
		if result.Playlists == nil {
			t.Error("Dump() playlists should not be nil")
		}
		if result.Tracks != nil {
			t.Error("Dump() tracks should be nil for a failed endpoint")
		}

		// tracks (500), embeddings (transport), artists/albums/favorites (404)
		if len(result.Errors) != 5 {
			t.Errorf("Dump() errors = %d, want 5", len(result.Errors))
		}
		for _, e := range result.Errors {
			if e.Endpoint == "/music/tracks" && !errors.Is(e.Error, shared.ErrAPIRequest) {
				t.Errorf("status error should wrap ErrAPIRequest, got %v", e.Error)
			}
		}

		var updates []ProgressUpdate
		for u := range progressCh {
			updates = append(updates, u)
		}
		if len(updates) != 7 {
			t.Fatalf("Dump() progress updates = %d, want 7", len(updates))
		}
		if updates[0].Phase != FetchProfile || updates[6].Phase != FetchEmbeddings {
			t.Errorf("unexpected phase order: %v .. %v", updates[0].Phase, updates[6].Phase)
		}
		if updates[6].Step != 7 || updates[6].Total != 7 {
			t.Errorf("last update step = %d/%d", updates[6].Step, updates[6].Total)
		}
	})

	t.Run("nil API client", func(t *testing.T) {
		engine := NewLibraryEngine(nil, nil, nil)
		if _, err := engine.Dump(context.Background(), nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("Dump() error = %v, want ErrServiceUnavailable", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		engine := NewLibraryEngine(nil, &mockAPIClient{}, nil)
		result, err := engine.Dump(ctx, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Dump() error = %v, want context.Canceled", err)
		}
		if result == nil {
			t.Error("Dump() should return the partial result")
		}
	})

	t.Run("progress never blocks", func(t *testing.T) {
		engine := NewLibraryEngine(nil, &mockAPIClient{}, nil)
		progressCh := make(chan ProgressUpdate)

		done := make(chan struct{})
		go func() {
			defer close(done)
			if _, err := engine.Dump(context.Background(), progressCh); err != nil {
				t.Errorf("Dump() error = %v", err)
			}
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Dump() blocked on an unread progress channel")
		}
	})
}

func TestDumpResult_Data(t *testing.T) {
	r := &DumpResult{
		Profile: map[string]any{"id": "u1"},
		Errors:  []EndpointResult{{Endpoint: "/music/tracks", Error: errors.New("status 500")}},
	}

	data, err := json.Marshal(r.Data())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["artists"]; ok {
		t.Error("empty endpoints should be omitted")
	}
	errs, ok := decoded["errors"].([]any)
	if !ok || len(errs) != 1 || errs[0] != "/music/tracks: status 500" {
		t.Errorf("unexpected errors field: %v", decoded["errors"])
	}
}

func TestPhase_String(t *testing.T) {
	tc := map[Phase]string{
		FetchProfile:    "fetch_profile",
		FetchEmbeddings: "fetch_embeddings",
		ExportPlaylist:  "export_playlist",
		Phase(99):       "",
	}
	for p, want := range tc {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}
