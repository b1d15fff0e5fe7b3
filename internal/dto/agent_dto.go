package dto

import (
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/memory"
)

type ProcessPromptRequest struct {
	Prompt       string `json:"prompt" validate:"required"`
	SessionID    string `json:"session_id"`
	DataSourceID int    `json:"data_source_id" validate:"gte=0"`
}

type AnalyzePromptRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type AnalyzePromptResponse struct {
	Service         string   `json:"service"`
	Action          string   `json:"action"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	DataQuery       bool     `json:"data_query"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type SessionListResponse struct {
	Sessions []string `json:"sessions"`
	Count    int      `json:"count"`
}

type SessionHistoryResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []memory.Turn `json:"turns"`
}

type ProcessPromptResponse = agent.ProcessResult
