package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/coach"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoSum = "Given an array of integers, return indices of the two numbers that add up to a target."

func TestServer_Tools(t *testing.T) {
	ctx := context.Background()
	s := NewServer(coach.New(), nil)

	started, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]any{"problem": twoSum, "skill_level": "advanced"})
	require.NoError(t, err)
	assert.NotEmpty(t, started.SessionID)
	assert.Equal(t, domain.StageProblemClarification, started.Stage)
	assert.Contains(t, started.Reply, twoSum)

	turn, err := s.handleTurn(ctx, mcp.CallToolRequest{}, map[string]any{
		"session_id": started.SessionID,
		"text":       "I need to find two numbers that add up to target",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageThoughtArticulation, turn.Stage)
	assert.Contains(t, turn.Reply, "Hash Table")
	require.NotNil(t, turn.Diff)

	sess, err := s.handleGet(ctx, mcp.CallToolRequest{}, map[string]any{"session_id": started.SessionID})
	require.NoError(t, err)
	assert.Equal(t, domain.SkillAdvanced, sess.SkillLevel())
	assert.Len(t, sess.Conversation, 2)

	list, err := s.handleList(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{started.SessionID}, list.Sessions)

	_, err = s.handleDelete(ctx, mcp.CallToolRequest{}, map[string]any{"session_id": started.SessionID})
	require.NoError(t, err)
	_, err = s.handleGet(ctx, mcp.CallToolRequest{}, map[string]any{"session_id": started.SessionID})
	assert.ErrorContains(t, err, "session not found")
}

func TestServer_ToolErrors(t *testing.T) {
	ctx := context.Background()
	s := NewServer(coach.New(), nil)

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]any{"problem": "  "})
	assert.Error(t, err)

	_, err = s.handleStart(ctx, mcp.CallToolRequest{}, map[string]any{"problem": twoSum, "skill_level": "guru"})
	assert.ErrorContains(t, err, "unknown skill level")

	_, err = s.handleTurn(ctx, mcp.CallToolRequest{}, map[string]any{"session_id": "missing", "text": "hello there"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestServer_Resources(t *testing.T) {
	s := NewServer(coach.New(), nil)

	contents, err := s.readResponders(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, RespondersURI, text.URI)
	var infos []coach.ResponderInfo
	require.NoError(t, json.Unmarshal([]byte(text.Text), &infos))
	assert.Len(t, infos, len(domain.AllStages()))

	contents, err = s.readStages(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	text = contents[0].(mcp.TextResourceContents)
	var stages []stageInfo
	require.NoError(t, json.Unmarshal([]byte(text.Text), &stages))
	require.Len(t, stages, 7)
	assert.Equal(t, "problem_clarification", stages[0].Name)
}
