package reporters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockHttpClient struct {
	requests []*http.Request
	bodies   []string
	status   int
}

func (m *MockHttpClient) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	body, _ := io.ReadAll(req.Body)
	m.bodies = append(m.bodies, string(body))

	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("This is a mock response body.")),
		Header:     make(http.Header),
	}, nil
}

type MockEventRepository struct {
	sets []repositories.EventSet
}

func (m MockEventRepository) Store(set repositories.EventSet) error {
	return fmt.Errorf("read only")
}

func (m MockEventRepository) Clear() error {
	return nil
}

func (m MockEventRepository) Close() error {
	return nil
}

func (m MockEventRepository) NewIterator() repositories.EventIterator {
	return &MockEventIterator{sets: m.sets}
}

type MockEventIterator struct {
	position int
	sets     []repositories.EventSet
}

func (m *MockEventIterator) Reset() error {
	m.position = 0
	return nil
}

func (m *MockEventIterator) HasNext() bool {
	return m.position < len(m.sets)
}

func (m *MockEventIterator) Next() (repositories.EventSet, error) {
	set := m.sets[m.position]
	m.position++
	return set, nil
}

type MockReportIdGenerator struct {
	id string
}

func (m MockReportIdGenerator) Generate() string {
	return m.id
}

func sampleRepository() MockEventRepository {
	return MockEventRepository{sets: []repositories.EventSet{
		{
			Repository: "Repo1",
			Passed:     false,
			Events: []core.Event{
				core.NewVerdictEvent("RepoNotEmpty", false),
				core.NewInfoEvent("ReportGoDep", core.InfoTypeDependency, map[string]any{"name": "x"}),
			},
		},
	}}
}

func TestHttpReporter_Report(t *testing.T) {
	expectedId := "101"
	client := MockHttpClient{}
	reporter := HttpReporter{
		BaseURL:           "https://somewhere",
		HTTPClient:        &client,
		ReportIdGenerator: MockReportIdGenerator{id: expectedId},
	}

	err := reporter.Report(sampleRepository())
	assert.Nil(t, err)
	require.Len(t, client.requests, 2)

	request1 := client.requests[0]
	assert.Equal(t, fmt.Sprintf("https://somewhere/reports/%s/results", expectedId), request1.URL.String())
	assert.Equal(t, "POST", request1.Method)
	assert.Equal(t, "application/json", request1.Header.Get("Content-Type"))

	var posted repositories.EventSet
	require.NoError(t, json.Unmarshal([]byte(client.bodies[0]), &posted))
	assert.Equal(t, "Repo1", posted.Repository)
	assert.Len(t, posted.Events, 2)

	request2 := client.requests[1]
	assert.Equal(t, fmt.Sprintf("https://somewhere/report/%s", expectedId), request2.URL.String())
	assert.Equal(t, "PATCH", request2.Method)
	assert.JSONEq(t, `{"status":"completed"}`, client.bodies[1])
}

func TestHttpReporter_ReportRejectedStatus(t *testing.T) {
	client := MockHttpClient{status: http.StatusBadRequest}
	reporter := HttpReporter{
		BaseURL:           "https://somewhere",
		HTTPClient:        &client,
		ReportIdGenerator: MockReportIdGenerator{id: "1"},
	}

	err := reporter.Report(sampleRepository())

	assert.ErrorContains(t, err, "unexpected response status: 400")
	assert.Len(t, client.requests, 1)
}

func TestCreateReporters(t *testing.T) {
	assert.Len(t, CreateReporters(""), 1)

	reporters := CreateReporters("https://somewhere/")
	require.Len(t, reporters, 2)
	assert.Equal(t, "https://somewhere", reporters[1].(HttpReporter).BaseURL)
}
