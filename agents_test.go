package main

import (
	"strings"
	"testing"
)

func TestNewAgentManager(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{
			name:    "valid api key",
			apiKey:  "test-api-key-123",
			wantErr: false,
		},
		{
			name:    "empty api key",
			apiKey:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := &Settings{
				Oracle:     AgentSettings{Model: "oracle-model"},
				Summarizer: SummarizerSettings{AgentSettings: AgentSettings{Model: "summary-model"}},
			}

			am, err := NewAgentManager(tt.apiKey, settings)

			if (err != nil) != tt.wantErr {
				t.Errorf("NewAgentManager() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if am == nil {
					t.Fatal("NewAgentManager() returned nil AgentManager")
				}
				if am.apiKey != tt.apiKey {
					t.Error("NewAgentManager() apiKey not set correctly")
				}
				if am.oracle.Model != "oracle-model" {
					t.Errorf("oracle model = %q, want oracle-model", am.oracle.Model)
				}
				if am.summarizer.Model != "summary-model" {
					t.Errorf("summarizer model = %q, want summary-model", am.summarizer.Model)
				}
				if am.Oracle() == nil {
					t.Error("Oracle() returned nil")
				}
			}
		})
	}
}

func TestSummaryPrompt(t *testing.T) {
	if got := summaryPrompt("", true); !strings.Contains(got, "attached document") {
		t.Errorf("summaryPrompt() = %q, want attached document prompt", got)
	}
	if got := summaryPrompt("body text", false); !strings.Contains(got, "body text") {
		t.Errorf("summaryPrompt() = %q, want content inlined", got)
	}
}
