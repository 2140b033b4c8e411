package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

const oracleSystemPrompt = "You rate how relevant a news article title is to a list of topics. Answer with a single number between 0 and 1."

const summarizerSystemPrompt = "You write short, neutral summaries of web articles."

// AgentManager sends prompts to the Anthropic API for both the relevance
// oracle and the summarizer
type AgentManager struct {
	apiKey     string
	oracle     AgentSettings
	summarizer AgentSettings
}

// NewAgentManager creates an AgentManager from the oracle and summarizer settings
func NewAgentManager(apiKey string, settings *Settings) (*AgentManager, error) {
	if apiKey == "" {
		return nil, errors.New("creating agent manager: API key is empty")
	}
	return &AgentManager{
		apiKey:     apiKey,
		oracle:     settings.Oracle,
		summarizer: settings.Summarizer.AgentSettings,
	}, nil
}

// Oracle returns a RelevanceOracle backed by the oracle model
func (am *AgentManager) Oracle() RelevanceOracle {
	return agentOracle{am: am}
}

type agentOracle struct {
	am *AgentManager
}

func (o agentOracle) Ask(ctx context.Context, prompt string) (string, error) {
	return o.am.prompt(ctx, oracleSystemPrompt, prompt, o.am.oracle, nil)
}

// Summarize asks the summarizer model for a summary of content, or of the
// uploaded documents when content is empty
func (am *AgentManager) Summarize(ctx context.Context, content string, fileIDs ...string) (string, error) {
	prompt := summaryPrompt(content, len(fileIDs) > 0)
	var files []types.File
	for _, id := range fileIDs {
		files = append(files, types.File{ID: id})
	}
	summary, err := am.prompt(ctx, summarizerSystemPrompt, prompt, am.summarizer, files)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

func summaryPrompt(content string, attached bool) string {
	if content == "" && attached {
		return "Please summarize the attached document in no more than 10 sentences.\n\nSummary:"
	}
	return fmt.Sprintf("Please summarize the following content in no more than 10 sentences:\n\n%s\n\nSummary:", content)
}

type promptResult struct {
	text string
	err  error
}

// prompt runs one completion. The llmkit call does not take a context, so it
// runs in a goroutine and is abandoned when ctx ends.
func (am *AgentManager) prompt(ctx context.Context, systemPrompt, userPrompt string, agent AgentSettings, files []types.File) (string, error) {
	done := make(chan promptResult, 1)
	go func() {
		settings := types.RequestSettings{
			Model:       agent.Model,
			MaxTokens:   agent.MaxTokens,
			Temperature: agent.Temperature,
		}
		response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", am.apiKey, settings, files...)
		if err != nil {
			done <- promptResult{err: fmt.Errorf("prompting %s: %w", agent.Model, err)}
			return
		}
		if len(response.Content) == 0 {
			done <- promptResult{err: fmt.Errorf("no content in %s response", agent.Model)}
			return
		}
		done <- promptResult{text: response.Content[0].Text}
	}()

	select {
	case <-ctx.Done():
		slog.Debug("prompt abandoned", "model", agent.Model, "error", ctx.Err())
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}
