package inference

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrModelNotFound is returned when the model directory or one of its
	// required files is missing.
	ErrModelNotFound = errors.New("model not found")
	// ErrIncompatibleModel is returned when the weights are not a causal language model.
	ErrIncompatibleModel = errors.New("incompatible model")
)

var (
	tokenizerFiles = []string{"tokenizer.json", "tokenizer.model", "tokenizer_config.json", "vocab.json"}
	weightPatterns = []string{"*.safetensors", "*.bin", "*.gguf", "*.pt"}
)

// ModelInfo describes a model directory on disk.
type ModelInfo struct {
	Path         string
	Architecture string
	ModelType    string
	TorchDType   string
	Tokenizer    string
	WeightFiles  []string
}

// InspectModel checks that path holds a loadable causal language model:
// a config.json, a tokenizer and at least one weight file.
func InspectModel(path string) (ModelInfo, error) {
	info := ModelInfo{Path: filepath.Clean(path)}

	st, err := os.Stat(info.Path)
	if err != nil {
		return info, fmt.Errorf("%w: %v", ErrModelNotFound, err)
	}
	if !st.IsDir() {
		return info, fmt.Errorf("%w: %s is not a directory", ErrModelNotFound, info.Path)
	}

	raw, err := os.ReadFile(filepath.Join(info.Path, "config.json"))
	if err != nil {
		return info, fmt.Errorf("%w: read config.json: %v", ErrModelNotFound, err)
	}
	if !gjson.ValidBytes(raw) {
		return info, fmt.Errorf("%w: config.json is not valid json", ErrIncompatibleModel)
	}

	cfg := gjson.ParseBytes(raw)
	info.ModelType = cfg.Get("model_type").String()
	info.TorchDType = cfg.Get("torch_dtype").String()

	archs := cfg.Get("architectures").Array()
	for _, a := range archs {
		if strings.HasSuffix(a.String(), "ForCausalLM") {
			info.Architecture = a.String()
			break
		}
	}
	switch {
	case info.Architecture != "":
	case len(archs) == 0 && info.ModelType != "":
		info.Architecture = info.ModelType
	case len(archs) > 0:
		return info, fmt.Errorf("%w: architectures %s has no causal LM head", ErrIncompatibleModel, cfg.Get("architectures").Raw)
	default:
		return info, fmt.Errorf("%w: config.json names neither architectures nor model_type", ErrIncompatibleModel)
	}

	for _, name := range tokenizerFiles {
		if _, err := os.Stat(filepath.Join(info.Path, name)); err == nil {
			info.Tokenizer = name
			break
		}
	}
	if info.Tokenizer == "" {
		return info, fmt.Errorf("%w: no tokenizer in %s", ErrModelNotFound, info.Path)
	}

	for _, pattern := range weightPatterns {
		matches, err := filepath.Glob(filepath.Join(info.Path, pattern))
		if err != nil {
			return info, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			if filepath.Base(m) == "training_args.bin" {
				continue
			}
			info.WeightFiles = append(info.WeightFiles, filepath.Base(m))
		}
	}
	if len(info.WeightFiles) == 0 {
		return info, fmt.Errorf("%w: no weight files in %s", ErrModelNotFound, info.Path)
	}
	sort.Strings(info.WeightFiles)

	return info, nil
}
