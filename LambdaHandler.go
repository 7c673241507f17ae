package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/reaandrew/salus/config"
	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/repositories"
	"github.com/reaandrew/salus/scanners"
	"github.com/reaandrew/salus/tools"
	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
)

// LambdaRequest represents the expected JSON structure in the request body
type LambdaRequest struct {
	Repo   string `json:"repo"`
	Cutoff string `json:"cutoff"`
	UserID string `json:"user_id"`
}

// LambdaResponse is the body returned for a completed scan.
type LambdaResponse struct {
	Repository string       `json:"repository"`
	Passed     bool         `json:"passed"`
	Events     []core.Event `json:"events"`
}

// TokenSource looks up the clone token of a user.
type TokenSource func(ctx context.Context, userID string) (string, error)

// RepoScanFunc scans one repository URL into an EventSet.
type RepoScanFunc func(ctx context.Context, request LambdaRequest, token string) (repositories.EventSet, error)

// LambdaHandler answers API Gateway requests asking for a repository scan.
type LambdaHandler struct {
	Tokens TokenSource
	Scan   RepoScanFunc
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return LambdaHandler{Tokens: getStoredToken, Scan: ScanRepo}.Handle(ctx, request)
}

func (h LambdaHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var lambdaReq LambdaRequest
	if err := json.Unmarshal([]byte(request.Body), &lambdaReq); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return errorResponse(400, "Invalid JSON format."), nil
	}
	if lambdaReq.Repo == "" {
		return errorResponse(400, "The 'repo' field is required in the JSON request."), nil
	}

	token := ""
	if lambdaReq.UserID != "" {
		var err error
		if token, err = h.Tokens(ctx, lambdaReq.UserID); err != nil {
			log.Printf("Error retrieving token: %v", err)
			return errorResponse(403, "No token available for this user."), nil
		}
	}

	set, err := h.Scan(ctx, lambdaReq, token)
	if err != nil {
		log.Printf("Error scanning repository: %v", err)
		return errorResponse(500, err.Error()), nil
	}

	body, err := json.Marshal(LambdaResponse{Repository: set.Repository, Passed: set.Passed, Events: set.Events})
	if err != nil {
		return errorResponse(500, err.Error()), nil
	}
	return toAPIGatewayResponse(200, string(body)), nil
}

func errorResponse(statusCode int, message string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(map[string]string{"error": message})
	return toAPIGatewayResponse(statusCode, string(body))
}

func toAPIGatewayResponse(statusCode int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode:      statusCode,
		Headers:         map[string]string{"Content-Type": "application/json"},
		Body:            body,
		IsBase64Encoded: false,
	}
}

// getStoredToken retrieves the stored token for a given userID from SSM Parameter Store
func getStoredToken(ctx context.Context, userID string) (string, error) {
	paramPrefix := os.Getenv("SSM_PARAMETER_PREFIX")
	if paramPrefix == "" {
		return "", fmt.Errorf("SSM_PARAMETER_PREFIX environment variable is not set")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	svc := ssm.NewFromConfig(cfg)

	paramName := paramPrefix + userID
	result, err := svc.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to retrieve parameter '%s': %w", paramName, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter '%s' has no value", paramName)
	}
	return *result.Parameter.Value, nil
}

// ScanRepo clones and scans one repository using the configuration at
// SALUS_CONFIG when set.
func ScanRepo(ctx context.Context, request LambdaRequest, token string) (repositories.EventSet, error) {
	var paths []string
	if path := os.Getenv("SALUS_CONFIG"); path != "" {
		paths = append(paths, path)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return repositories.EventSet{}, err
	}
	if request.Cutoff != "" {
		activity := cfg.ScannerConfig("ReportGitActivity")
		activity["cutoff"] = request.Cutoff
		cfg.ScannerConfigs["ReportGitActivity"] = activity
	}

	store, err := repositories.NewFileBasedEventRepository(filepath.Join(os.TempDir(), "salus_events"))
	if err != nil {
		return repositories.EventSet{}, err
	}
	defer func() {
		if err := store.Clear(); err != nil {
			log.Errorf("Error clearing event store: %v", err)
		}
	}()
	if err := store.Clear(); err != nil {
		return repositories.EventSet{}, err
	}

	scanner := scanners.RepoScanner{
		Suite: scanners.Suite{
			Runner: scanners.NewRunner(scanners.DefaultRegistry(), cfg, tools.NewShellRunner(), 1),
			Events: store,
		},
		GitClient: utils.GitClient{},
		Token:     token,
	}
	if _, err := scanner.Scan(ctx, request.Repo); err != nil {
		return repositories.EventSet{}, err
	}

	iterator := store.NewIterator()
	if !iterator.HasNext() {
		return repositories.EventSet{}, fmt.Errorf("no events recorded for '%s'", request.Repo)
	}
	return iterator.Next()
}
