package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubHandler(tokens map[string]string, scanned *LambdaRequest, gotToken *string) LambdaHandler {
	return LambdaHandler{
		Tokens: func(_ context.Context, userID string) (string, error) {
			if token, ok := tokens[userID]; ok {
				return token, nil
			}
			return "", errors.New("parameter not found")
		},
		Scan: func(_ context.Context, request LambdaRequest, token string) (repositories.EventSet, error) {
			*scanned = request
			*gotToken = token
			if request.Repo == "https://github.com/broken/repo" {
				return repositories.EventSet{}, errors.New("clone failed")
			}
			return repositories.EventSet{
				Repository: "owner/repo",
				Passed:     false,
				Events:     []core.Event{core.NewVerdictEvent("RepoNotEmpty", false)},
			}, nil
		},
	}
}

func TestLambdaHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		statusCode int
		token      string
	}{
		{"invalid json", "{", 400, ""},
		{"missing repo", `{"cutoff":"1 year ago"}`, 400, ""},
		{"unknown user", `{"repo":"https://github.com/owner/repo","user_id":"nobody"}`, 403, ""},
		{"scan failure", `{"repo":"https://github.com/broken/repo"}`, 500, ""},
		{"scan", `{"repo":"https://github.com/owner/repo","user_id":"alice","cutoff":"1 year ago"}`, 200, "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var scanned LambdaRequest
			var token string
			handler := stubHandler(map[string]string{"alice": "secret"}, &scanned, &token)

			response, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{Body: tt.body})

			require.NoError(t, err)
			assert.Equal(t, tt.statusCode, response.StatusCode)
			assert.Equal(t, "application/json", response.Headers["Content-Type"])
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestLambdaHandlerResponseBody(t *testing.T) {
	var scanned LambdaRequest
	var token string
	handler := stubHandler(nil, &scanned, &token)

	response, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		Body: `{"repo":"https://github.com/owner/repo","cutoff":"6 months ago"}`,
	})
	require.NoError(t, err)

	var body LambdaResponse
	require.NoError(t, json.Unmarshal([]byte(response.Body), &body))
	assert.Equal(t, "owner/repo", body.Repository)
	assert.False(t, body.Passed)
	require.Len(t, body.Events, 1)
	assert.True(t, body.Events[0].IsFailure())
	assert.Equal(t, "6 months ago", scanned.Cutoff)
}
