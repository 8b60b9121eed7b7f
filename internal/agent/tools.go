package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTool is returned when no tool is registered under a name.
var ErrUnknownTool = errors.New("unknown tool")

// Tool is something the agent may call while answering a query.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string) (string, error)
}

// Registry holds the tools available to an agent.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds tool. Names must be unique.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return errors.New("tool name is required")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	return nil
}

func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return tool, nil
}

// List returns the tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	tools := r.List()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
	}
	return names
}

// DefaultRegistry returns the telecom tool set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range []Tool{AnalyzeCDR{}, AnalyzeRevenue{}, ProcessFile{}} {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// AnalyzeCDR is the call detail record analysis tool.
type AnalyzeCDR struct{}

func (AnalyzeCDR) Name() string        { return "analyze_cdr" }
func (AnalyzeCDR) Description() string { return "Analyze Call Detail Records (CDR) data" }

// TODO: aggregate over cdr_records once an ingestion path populates the table.
func (AnalyzeCDR) Run(context.Context, string) (string, error) {
	return "CDR analysis not implemented yet", nil
}

// AnalyzeRevenue is the revenue analysis tool.
type AnalyzeRevenue struct{}

func (AnalyzeRevenue) Name() string        { return "analyze_revenue" }
func (AnalyzeRevenue) Description() string { return "Analyze revenue data and generate insights" }

func (AnalyzeRevenue) Run(context.Context, string) (string, error) {
	return "Revenue analysis not implemented yet", nil
}

// ProcessFile is the file processing tool. It echoes the path it was given.
type ProcessFile struct{}

func (ProcessFile) Name() string        { return "process_file" }
func (ProcessFile) Description() string { return "Process and extract information from telecom files" }

func (ProcessFile) Run(_ context.Context, filePath string) (string, error) {
	return "Processing file: " + filePath, nil
}
