package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
	"github.com/MeKo-Tech/ctcbeam/internal/server"
	"github.com/cucumber/godog"
)

// aDecodingServerWithAlphabet starts an in-process server on a random port.
func (testCtx *TestContext) aDecodingServerWithAlphabet(symbols string) error {
	alpha, err := alphabet.Parse(symbols)
	if err != nil {
		return fmt.Errorf("invalid alphabet %q: %w", symbols, err)
	}
	cfg := pipeline.DefaultConfig()
	cfg.Parallel.MaxWorkers = 2

	srv, err := server.NewServer(server.Config{
		MaxUploadMB: 1,
		MaxBatch:    8,
		TimeoutSec:  10,
		Version:     "test",
		Pipeline:    cfg,
		Alphabet:    alpha,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPServer = httptest.NewServer(srv.Handler())
	return nil
}

func (testCtx *TestContext) do(method, path string, body io.Reader) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("no server is running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, testCtx.HTTPServer.URL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := testCtx.HTTPServer.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	return testCtx.do(http.MethodGet, path, nil)
}

func (testCtx *TestContext) iPOSTToWith(path string, body *godog.DocString) error {
	return testCtx.do(http.MethodPost, path, bytes.NewBufferString(body.Content))
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, expected) {
		return fmt.Errorf("response does not contain %q\nBody: %s", expected, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBeSet(name string) error {
	if testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)] == "" {
		return fmt.Errorf("response header %s is not set", name)
	}
	return nil
}

// theResponseFieldShouldBe compares a dotted JSON path such as
// "result.sequences.0" against its string rendering.
func (testCtx *TestContext) theResponseFieldShouldBe(path, expected string) error {
	var doc any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &doc); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	cur := doc
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return fmt.Errorf("field %q not found in response\nBody: %s", path, testCtx.LastHTTPResponse)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return fmt.Errorf("index %q out of range for %q", key, path)
			}
			cur = node[i]
		default:
			return fmt.Errorf("cannot descend into %q at %q", path, key)
		}
	}
	if got := fmt.Sprint(cur); got != expected {
		return fmt.Errorf("field %s is %q, want %q", path, got, expected)
	}
	return nil
}

// RegisterServerSteps registers the HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a decoding server with alphabet "([^"]*)"$`, testCtx.aDecodingServerWithAlphabet)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I POST to "([^"]*)" with:$`, testCtx.iPOSTToWith)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be set$`, testCtx.theResponseHeaderShouldBeSet)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseFieldShouldBe)
}
