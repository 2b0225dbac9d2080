package oracle

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*anthropic.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) Resolve(ctx context.Context, profileSlice any, batch []model.FieldDescriptor, mode Mode) map[RequestKey]model.Value {
	args := m.Called(ctx, profileSlice, batch, mode)
	return args.Get(0).(map[RequestKey]model.Value)
}

func textResponse(s string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
}
