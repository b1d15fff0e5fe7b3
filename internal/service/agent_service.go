package service

import (
	"context"

	"github.com/rachit-keshari-2003312/third-eye-project/internal/dto"
	"github.com/rachit-keshari-2003312/third-eye-project/internal/pkg/logger"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent"
)

// IAgentService defines the conversational agent service interface
type IAgentService interface {
	ProcessPrompt(ctx context.Context, request *dto.ProcessPromptRequest) *dto.ProcessPromptResponse
	AnalyzePrompt(request *dto.AnalyzePromptRequest) *dto.AnalyzePromptResponse
	CreateSession() *dto.CreateSessionResponse
	ListSessions() *dto.SessionListResponse
	GetHistory(sessionID string, lastN int) *dto.SessionHistoryResponse
	ClearSession(sessionID string)
}

type agentService struct {
	agent     *agent.Agent
	sysLogger logger.ILogger
}

func NewAgentService(a *agent.Agent, sysLogger logger.ILogger) IAgentService {
	return &agentService{
		agent:     a,
		sysLogger: sysLogger,
	}
}

func (s *agentService) ProcessPrompt(ctx context.Context, request *dto.ProcessPromptRequest) *dto.ProcessPromptResponse {
	s.sysLogger.Info("AGENT", "Processing prompt", map[string]interface{}{
		"session_id":     request.SessionID,
		"data_source_id": request.DataSourceID,
		"length":         len(request.Prompt),
	})

	result := s.agent.ProcessPromptOnDataSource(ctx, request.Prompt, request.SessionID, request.DataSourceID)

	if result.Success {
		s.sysLogger.Info("AGENT", "Prompt processed", map[string]interface{}{
			"session_id": result.SessionID,
			"action":     result.Action,
			"row_count":  result.RowCount,
		})
	} else {
		s.sysLogger.Warn("AGENT", "Prompt failed", map[string]interface{}{
			"session_id": result.SessionID,
			"error":      result.Error,
		})
	}
	return result
}

func (s *agentService) AnalyzePrompt(request *dto.AnalyzePromptRequest) *dto.AnalyzePromptResponse {
	route := s.agent.AnalyzePrompt(request.Prompt)
	return &dto.AnalyzePromptResponse{
		Service:         route.Service,
		Action:          route.Action,
		Confidence:      route.Confidence,
		Reasoning:       route.Reasoning,
		MatchedKeywords: route.MatchedKeywords,
		DataQuery:       route.DataQuery,
	}
}

func (s *agentService) CreateSession() *dto.CreateSessionResponse {
	id := s.agent.CreateSession()
	s.sysLogger.Info("AGENT", "Session created", map[string]interface{}{"session_id": id})
	return &dto.CreateSessionResponse{SessionID: id}
}

func (s *agentService) ListSessions() *dto.SessionListResponse {
	sessions := s.agent.ActiveSessions()
	return &dto.SessionListResponse{
		Sessions: sessions,
		Count:    len(sessions),
	}
}

func (s *agentService) GetHistory(sessionID string, lastN int) *dto.SessionHistoryResponse {
	return &dto.SessionHistoryResponse{
		SessionID: sessionID,
		Turns:     s.agent.GetHistory(sessionID, lastN),
	}
}

func (s *agentService) ClearSession(sessionID string) {
	s.agent.ClearSession(sessionID)
	s.sysLogger.Info("AGENT", "Session cleared", map[string]interface{}{"session_id": sessionID})
}
