package eino

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	gemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"
)

// Config represents the configuration for the completion client
type Config struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}

// Options are the per-call sampling knobs.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty completion")

// Service is a thin completion client over an Eino chat model. Output is
// returned verbatim; callers parse and validate it.
type Service struct {
	config    Config
	chatModel model.BaseChatModel
}

// NewService creates a Service with the configured provider.
func NewService(ctx context.Context, config Config) (*Service, error) {
	s := &Service{config: config}
	if err := s.initializeChatModel(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}
	return s, nil
}

// NewServiceWithModel creates a Service around a pre-built chat model.
func NewServiceWithModel(config Config, chatModel model.BaseChatModel) *Service {
	return &Service{config: config, chatModel: chatModel}
}

func (s *Service) initializeChatModel(ctx context.Context) error {
	switch strings.ToLower(s.config.Provider) {
	case "gemini", "":
		return s.initializeGeminiModel(ctx)
	default:
		return fmt.Errorf("unsupported provider: %s. Supported: gemini", s.config.Provider)
	}
}

func (s *Service) initializeGeminiModel(ctx context.Context) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	geminiModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: client,
		Model:  s.config.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini chat model: %w", err)
	}
	s.chatModel = geminiModel
	return nil
}

// Complete sends one system and one user message and returns the raw text.
func (s *Service) Complete(ctx context.Context, system, user string, opts Options) (string, error) {
	if s.chatModel == nil {
		return "", fmt.Errorf("chat model not initialized")
	}
	messages := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, schema.SystemMessage(system))
	}
	messages = append(messages, schema.UserMessage(user))

	var callOpts []model.Option
	if opts.Temperature > 0 {
		callOpts = append(callOpts, model.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, model.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := s.chatModel.Generate(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", s.provider(), err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Content, nil
}

// Model returns the configured model name.
func (s *Service) Model() string { return s.config.Model }

func (s *Service) provider() string {
	if s.config.Provider == "" {
		return "gemini"
	}
	return s.config.Provider
}
