package inference

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

var (
	// ErrModelNotServed is returned when the inference server does not list the model.
	ErrModelNotServed = errors.New("model not served")
	// ErrInvalidOption is returned for an unsupported device or dtype.
	ErrInvalidOption = errors.New("invalid pipeline option")
	// ErrEmptyCompletion is returned when the server answers without choices.
	ErrEmptyCompletion = errors.New("empty completion")
)

var (
	validDevices = map[string]struct{}{"auto": {}, "cpu": {}, "cuda": {}, "mps": {}}
	validDTypes  = map[string]struct{}{"auto": {}, "float32": {}, "float16": {}, "bfloat16": {}}
)

// Config controls how the pipeline is loaded and how it decodes.
type Config struct {
	ModelPath     string
	ModelName     string
	BaseURL       string
	APIKey        string
	Device        string
	DType         string
	MaxNewTokens  int
	Temperature   float32
	MaxConcurrent int
	Timeout       time.Duration
	VerifyServer  bool
	// Stop ends a completion at the first match. Nil means DefaultStop.
	Stop   []string
	Logger *logrus.Logger
}

// DefaultStop keeps the model from writing its own tool observations.
var DefaultStop = []string{"\nObservation:"}

// Info summarises a loaded pipeline.
type Info struct {
	Name         string  `json:"name"`
	Path         string  `json:"path"`
	Architecture string  `json:"architecture"`
	Device       string  `json:"device"`
	DType        string  `json:"dtype"`
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float32 `json:"temperature"`
}

// Pipeline is a text generator backed by a locally served causal LM.
// It is built once at startup and shared by all requests.
type Pipeline struct {
	cfg    Config
	model  ModelInfo
	client *openai.Client
	sem    chan struct{}
	logger *logrus.Entry
}

// Load inspects the local model, applies device and precision settings and
// connects to the inference server. Any error means the model is unusable.
func Load(ctx context.Context, cfg Config) (*Pipeline, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Device == "" {
		cfg.Device = "auto"
	}
	if cfg.DType == "" {
		cfg.DType = "auto"
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = 512
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Stop == nil {
		cfg.Stop = DefaultStop
	}
	if cfg.ModelName == "" {
		cfg.ModelName = filepath.Base(filepath.Clean(cfg.ModelPath))
	}
	cfg.Device = strings.ToLower(cfg.Device)
	cfg.DType = strings.ToLower(cfg.DType)

	if _, ok := validDevices[cfg.Device]; !ok {
		return nil, fmt.Errorf("%w: device %q", ErrInvalidOption, cfg.Device)
	}
	if _, ok := validDTypes[cfg.DType]; !ok {
		return nil, fmt.Errorf("%w: dtype %q", ErrInvalidOption, cfg.DType)
	}

	model, err := InspectModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	if cfg.DType == "auto" && model.TorchDType != "" {
		cfg.DType = model.TorchDType
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	p := &Pipeline{
		cfg:    cfg,
		model:  model,
		client: openai.NewClientWithConfig(clientCfg),
		sem:    make(chan struct{}, cfg.MaxConcurrent),
		logger: cfg.Logger.WithField("component", "inference"),
	}

	if cfg.VerifyServer {
		if err := p.verifyServed(ctx); err != nil {
			return nil, err
		}
	}

	p.logger.WithFields(logrus.Fields{
		"model":        cfg.ModelName,
		"path":         model.Path,
		"architecture": model.Architecture,
		"device":       cfg.Device,
		"dtype":        cfg.DType,
		"weights":      len(model.WeightFiles),
	}).Info("model pipeline loaded")
	return p, nil
}

func (p *Pipeline) verifyServed(ctx context.Context) error {
	models, err := p.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list served models: %w", err)
	}
	served := make([]string, 0, len(models.Models))
	for _, m := range models.Models {
		if m.ID == p.cfg.ModelName || m.ID == p.model.Path {
			return nil
		}
		served = append(served, m.ID)
	}
	return fmt.Errorf("%w: %q not in [%s]", ErrModelNotServed, p.cfg.ModelName, strings.Join(served, ", "))
}

// Generate continues prompt with the fixed decoding parameters and returns
// only the generated text.
func (p *Pipeline) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return "", fmt.Errorf("wait for generation slot: %w", ctx.Err())
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       p.cfg.ModelName,
		Prompt:      prompt,
		MaxTokens:   p.cfg.MaxNewTokens,
		Temperature: p.cfg.Temperature,
		Stop:        p.cfg.Stop,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	p.logger.WithFields(logrus.Fields{
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"elapsed":           time.Since(start).String(),
	}).Debug("generation finished")
	return resp.Choices[0].Text, nil
}

// Info reports the loaded model and decoding settings.
func (p *Pipeline) Info() Info {
	return Info{
		Name:         p.cfg.ModelName,
		Path:         p.model.Path,
		Architecture: p.model.Architecture,
		Device:       p.cfg.Device,
		DType:        p.cfg.DType,
		MaxNewTokens: p.cfg.MaxNewTokens,
		Temperature:  p.cfg.Temperature,
	}
}
