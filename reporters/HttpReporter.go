package reporters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/reaandrew/salus/repositories"
	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
)

type ReportIdGenerator interface {
	Generate() string
}

type UuidReportGenerator struct{}

func (u UuidReportGenerator) Generate() string {
	return uuid.New().String()
}

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHttpClient retries failed requests with backoff.
type DefaultHttpClient struct {
	client *http.Client
}

func NewDefaultHttpClient() DefaultHttpClient {
	return DefaultHttpClient{client: utils.NewRetryableClient(4).StandardClient()}
}

func (d DefaultHttpClient) Do(req *http.Request) (*http.Response, error) {
	response, err := d.client.Do(req)
	if err != nil {
		log.Errorf("Error sending %s %s: %v", req.Method, req.URL, err)
		return nil, err
	}
	log.Debugf("%s %s returned %d", req.Method, req.URL, response.StatusCode)
	return response, nil
}

func NewDefaultHttpReporter(baseUrl string) HttpReporter {
	return HttpReporter{
		BaseURL:           strings.TrimRight(baseUrl, "/"),
		HTTPClient:        NewDefaultHttpClient(),
		ReportIdGenerator: UuidReportGenerator{},
	}
}

// HttpReporter posts each EventSet as a result of one report and then marks
// the report completed.
type HttpReporter struct {
	BaseURL           string
	HTTPClient        HttpClient
	ReportIdGenerator ReportIdGenerator
}

func (h HttpReporter) Report(repository repositories.EventRepository) error {
	iterator := repository.NewIterator()
	reportId := h.ReportIdGenerator.Generate()
	log.Infof("Publishing report %s to %s", reportId, h.BaseURL)

	for iterator.HasNext() {
		set, err := iterator.Next()
		if err != nil {
			return fmt.Errorf("failed to read event set: %w", err)
		}
		if err := h.postEventSet(set, reportId); err != nil {
			return fmt.Errorf("failed to report events of '%s': %w", set.Repository, err)
		}
	}

	if err := h.signalCompletion(reportId); err != nil {
		return fmt.Errorf("failed to signal completion: %w", err)
	}
	return nil
}

func (h HttpReporter) postEventSet(set repositories.EventSet, reportId string) error {
	url := fmt.Sprintf("%s/reports/%s/results", h.BaseURL, reportId)

	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal event set: %w", err)
	}
	return h.send(http.MethodPost, url, payload)
}

func (h HttpReporter) signalCompletion(reportId string) error {
	url := fmt.Sprintf("%s/report/%s", h.BaseURL, reportId)
	return h.send(http.MethodPatch, url, []byte(`{"status":"completed"}`))
}

func (h HttpReporter) send(method, url string, payload []byte) error {
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}
	return nil
}
