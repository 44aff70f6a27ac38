package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PythonBridge shells out to a small inference script so the recommender
// doesn't need a native Go binding for the multilingual embedding model.
type PythonBridge struct {
	logger      *logrus.Logger
	pythonPath  string
	scriptPath  string
	callTimeout time.Duration
	initialized bool
	mutex       sync.RWMutex
}

// embeddingRequest is written to the script's stdin as one JSON line.
type embeddingRequest struct {
	Texts     []string `json:"texts"`
	ModelName string   `json:"model_name"`
}

// embeddingResponse is read back from the script's stdout.
type embeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
	Latency    float64     `json:"latency"`
}

func NewPythonBridge(pythonPath string, callTimeout time.Duration, logger *logrus.Logger) *PythonBridge {
	if pythonPath == "" {
		pythonPath = "python3"
	}
	return &PythonBridge{
		logger:      logger,
		pythonPath:  pythonPath,
		callTimeout: callTimeout,
	}
}

func (pb *PythonBridge) Initialize() error {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()

	if pb.initialized {
		return nil
	}

	if err := pb.checkPython(); err != nil {
		return fmt.Errorf("python check failed: %w", err)
	}

	if err := pb.createInferenceScript(); err != nil {
		return fmt.Errorf("failed to create inference script: %w", err)
	}

	pb.initialized = true
	pb.logger.Info("embedding python bridge initialized")
	return nil
}

func (pb *PythonBridge) checkPython() error {
	cmd := exec.Command(pb.pythonPath, "--version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("python not found: %w", err)
	}

	version := strings.TrimSpace(string(output))
	pb.logger.WithField("version", version).Info("python found")
	return nil
}

func (pb *PythonBridge) createInferenceScript() error {
	scriptDir := "./scripts"
	if err := os.MkdirAll(scriptDir, 0755); err != nil {
		return err
	}

	pb.scriptPath = filepath.Join(scriptDir, "embedding_inference.py")
	return os.WriteFile(pb.scriptPath, []byte(embeddingInferenceScript), 0755)
}

// GenerateEmbeddings runs the inference script once for the given batch of
// texts, bounded by the configured call timeout.
func (pb *PythonBridge) GenerateEmbeddings(ctx context.Context, texts []string, modelName string) ([][]float32, error) {
	if !pb.initialized {
		if err := pb.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize python bridge: %w", err)
		}
	}

	request := embeddingRequest{Texts: texts, ModelName: modelName}
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, pb.callTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, pb.pythonPath, pb.scriptPath)
	cmd.Stdin = strings.NewReader(string(requestJSON))

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("python inference failed: %w", err)
	}

	var response embeddingResponse
	if err := json.Unmarshal(output, &response); err != nil {
		return nil, fmt.Errorf("failed to parse python response: %w", err)
	}

	if response.Error != "" {
		return nil, fmt.Errorf("python inference error: %s", response.Error)
	}

	pb.logger.WithFields(logrus.Fields{
		"texts_count": len(texts),
		"latency_ms":  response.Latency * 1000,
		"model":       modelName,
	}).Debug("generated embeddings via python")

	return response.Embeddings, nil
}

// embeddingInferenceScript loads the multilingual model the behavior-log
// pipeline's Python side used (fastembed's MiniLM multilingual model),
// falling back to a deterministic hash embedding when fastembed is not
// installed, so a missing dependency degrades gracefully instead of
// blocking startup. A model that fails to load is reported as an error.
const embeddingInferenceScript = `#!/usr/bin/env python3
import json
import sys
import time

try:
    from fastembed import TextEmbedding
    FASTEMBED_AVAILABLE = True
except ImportError:
    FASTEMBED_AVAILABLE = False

MODEL_CACHE = {}


def load_model(model_name):
    if model_name not in MODEL_CACHE:
        MODEL_CACHE[model_name] = TextEmbedding(model_name=model_name)
    return MODEL_CACHE[model_name]


def fallback_embedding(text, dimensions=384):
    import hashlib
    digest = hashlib.sha256(text.encode()).digest()
    vec = [(digest[i % len(digest)] / 255.0) - 0.5 for i in range(dimensions)]
    norm = sum(v * v for v in vec) ** 0.5
    if norm > 0:
        vec = [v / norm for v in vec]
    return vec


def generate_embeddings(texts, model_name):
    start = time.time()
    try:
        if not FASTEMBED_AVAILABLE:
            embeddings = [fallback_embedding(t) for t in texts]
            return {"embeddings": embeddings, "latency": time.time() - start}

        model = load_model(model_name)
        embeddings = [vec.tolist() for vec in model.embed(texts)]
        return {"embeddings": embeddings, "latency": time.time() - start}
    except Exception as e:
        return {"error": str(e), "latency": time.time() - start}


def main():
    line = sys.stdin.readline().strip()
    if not line:
        print(json.dumps({"error": "no input provided"}))
        return

    request = json.loads(line)
    texts = request.get("texts", [])
    model_name = request.get("model_name", "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2")

    if not texts:
        print(json.dumps({"error": "no texts provided"}))
        return

    print(json.dumps(generate_embeddings(texts, model_name)))


if __name__ == "__main__":
    main()
`
