package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/ragchat/internal/api/handlers"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/loader"
	"github.com/cloo-solutions/ragchat/internal/server"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/cloo-solutions/ragchat/internal/storage"
	"github.com/cloo-solutions/ragchat/internal/vectorstore"
)

const embeddingDims = 64

// hashEmbedder maps words onto a fixed-size bag-of-words vector so that
// texts sharing words score higher.
type hashEmbedder struct{}

func (hashEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%embeddingDims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / math.Sqrt(norm))
	}
	return vec, nil
}

// echoGenerator answers with the best context passage and records every
// request it receives.
type echoGenerator struct {
	mu       sync.Mutex
	requests []domain.GenerationRequest
}

func (g *echoGenerator) Generate(_ context.Context, req domain.GenerationRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if len(req.Context) == 0 {
		return "I don't have enough information at this time.", nil
	}
	return "Based on the documents: " + req.Context[0], nil
}

func (g *echoGenerator) last() domain.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

// Env is one running instance of the HTTP service over a documents and an
// index directory.
type Env struct {
	T           *testing.T
	Root        string
	DocsDir     string
	IndexDir    string
	Checkpoints string
	Generator   *echoGenerator
	Server      *httptest.Server
	HTTPClient  *http.Client

	backends Backends
	release  func()
}

// Backends opens the index and checkpoint store for one server instance.
// The returned func releases whatever was opened.
type Backends func(e *Env) (service.VectorIndex, service.CheckpointStore, func())

// FileBackends is the default: a JSON-lines index and a SQLite checkpoint
// store under the environment's root.
func FileBackends(e *Env) (service.VectorIndex, service.CheckpointStore, func()) {
	store, err := storage.NewSQLiteCheckpointStore(e.Checkpoints)
	if err != nil {
		e.T.Fatalf("failed to open checkpoint store: %v", err)
	}
	return vectorstore.NewFileIndex(e.IndexDir), store, func() { store.Close() }
}

// NewEnv starts a service over fresh temporary directories.
func NewEnv(t *testing.T) *Env {
	return NewEnvWith(t, FileBackends)
}

// NewEnvWith starts a service whose index and checkpoints come from backends.
func NewEnvWith(t *testing.T, backends Backends) *Env {
	root := t.TempDir()
	env := &Env{
		T:           t,
		Root:        root,
		DocsDir:     filepath.Join(root, "documents"),
		IndexDir:    filepath.Join(root, "vector_db"),
		Checkpoints: filepath.Join(root, "data", "checkpoints.db"),
		backends:    backends,
	}
	for _, dir := range []string{env.DocsDir, env.IndexDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	env.start()
	return env
}

// Restart stops the server and starts a new process-equivalent instance
// over the same directories: sessions are lost, files persist.
func (e *Env) Restart() {
	e.Close()
	e.start()
}

func (e *Env) start() {
	index, store, release := e.backends(e)
	e.release = release

	embeddings := service.NewEmbeddingService(hashEmbedder{}, service.EmbeddingOptions{})
	e.Generator = &echoGenerator{}

	ingestion := service.NewIngestionService(
		service.NewMetadataTracker(e.DocsDir, e.IndexDir),
		loader.New(),
		service.NewChunkSplitter(service.ChunkConfig{Size: 200, Overlap: 40}),
		embeddings,
		index,
	)
	conversation := service.NewConversationService(
		service.NewSessionStore(4),
		index,
		embeddings,
		e.Generator,
		store,
		service.ConversationConfig{RetrievalK: 2, ModelTimeout: 5 * time.Second},
	)

	e.Server = httptest.NewServer(server.NewRouter(server.RouterConfig{
		ChatHandler:      handlers.NewChatHandler(conversation),
		DocumentsHandler: handlers.NewDocumentsHandler(ingestion),
		HealthHandler:    handlers.NewHealthHandler(index),
	}))
	e.HTTPClient = e.Server.Client()
}

// Close stops the server and releases its backends.
func (e *Env) Close() {
	if e.Server != nil {
		e.Server.Close()
		e.Server = nil
	}
	if e.release != nil {
		e.release()
		e.release = nil
	}
}

// WriteDocument creates a file under the documents directory.
func (e *Env) WriteDocument(name, content string) string {
	path := filepath.Join(e.DocsDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		e.T.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.T.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// Touch moves a file's modification time forward.
func (e *Env) Touch(path string) {
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		e.T.Fatalf("failed to touch %s: %v", path, err)
	}
}

// Post sends a JSON body and decodes the JSON response into out.
func (e *Env) Post(path string, body any, out any) int {
	data, err := json.Marshal(body)
	if err != nil {
		e.T.Fatalf("failed to marshal body: %v", err)
	}
	resp, err := e.HTTPClient.Post(e.Server.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		e.T.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	decode(e.T, resp.Body, out)
	return resp.StatusCode
}

// Get fetches path and decodes the JSON response into out.
func (e *Env) Get(path string, out any) int {
	resp, err := e.HTTPClient.Get(e.Server.URL + path)
	if err != nil {
		e.T.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	decode(e.T, resp.Body, out)
	return resp.StatusCode
}

// Chat runs one turn and returns the answer.
func (e *Env) Chat(threadID, question string) string {
	var resp handlers.ChatResponse
	status := e.Post("/api/v1/chat", handlers.ChatRequest{Question: question, ThreadID: threadID}, &resp)
	if status != http.StatusOK {
		e.T.Fatalf("chat returned %d", status)
	}
	if resp.ThreadID != threadID {
		e.T.Fatalf("chat echoed thread %q, want %q", resp.ThreadID, threadID)
	}
	return resp.Answer
}

// Update triggers ingestion for the given explicit paths.
func (e *Env) Update(paths ...string) handlers.UpdateDocumentsResponse {
	var resp handlers.UpdateDocumentsResponse
	status := e.Post("/api/v1/update-documents", handlers.UpdateDocumentsRequest{FilePaths: paths}, &resp)
	if status != http.StatusOK {
		e.T.Fatalf("update-documents returned %d", status)
	}
	return resp
}

func decode(t *testing.T, r io.Reader, out any) {
	if out == nil {
		return
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode %s: %v", data, err)
	}
}
