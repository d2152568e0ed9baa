package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/pipeline"
	"github.com/MeKo-Tech/checkcode/internal/registry/backends"
	"github.com/MeKo-Tech/checkcode/internal/server"
	"github.com/MeKo-Tech/checkcode/internal/service"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

// HTTPTestServerWrapper wraps an in-process checkcode server.
type HTTPTestServerWrapper struct {
	Server        *httptest.Server
	closeRegistry func() error
}

// RegisterServerSteps registers the HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the checkcode server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I POST "([^"]*)" with JSON:$`, testCtx.iPOSTWithJSON)
	sc.Step(`^I upload "([^"]*)" as "([^"]*)" to "([^"]*)"$`, testCtx.iUpload)
	sc.Step(`^I save the generated image as "([^"]*)"$`, testCtx.iSaveTheGeneratedImage)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
}

func (testCtx *TestContext) theServerIsRunning() error {
	if testCtx.HTTPTestServer != nil {
		return nil
	}

	p, err := pipeline.NewBuilder().Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	reg, closeFn, err := backends.Open(context.Background(), backends.Options{Backend: "memory"})
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	svc := service.New(p, reg, barcode.NewDecoder(barcode.Options{TryHarder: true}))
	api := server.NewServer(server.Config{TimeoutSec: 30}, svc)

	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:        httptest.NewServer(api.Handler()),
		closeRegistry: closeFn,
	}
	return nil
}

// StopServer shuts the in-process server down if one is running.
func (testCtx *TestContext) StopServer() error {
	w := testCtx.HTTPTestServer
	if w == nil {
		return nil
	}
	testCtx.HTTPTestServer = nil
	w.Server.Close()
	return w.closeRegistry()
}

func (testCtx *TestContext) do(req *http.Request) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	if testCtx.HTTPTestServer == nil {
		return nil, errors.New("server is not running")
	}
	return http.NewRequestWithContext(context.Background(), method, testCtx.HTTPTestServer.Server.URL+path, body)
}

func (testCtx *TestContext) iGET(path string) error {
	req, err := testCtx.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) iPOSTWithJSON(path string, doc *godog.DocString) error {
	req, err := testCtx.newRequest(http.MethodPost, path, strings.NewReader(doc.Content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return testCtx.do(req)
}

func (testCtx *TestContext) iUpload(file, field, path string) error {
	data, err := os.ReadFile(testCtx.Path(file)) //nolint:gosec // G304: scenario paths
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filepath.Base(file))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := testCtx.newRequest(http.MethodPost, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iSaveTheGeneratedImage(file string) error {
	var resp server.GenerateResponse
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &resp); err != nil {
		return fmt.Errorf("response is not a generate response: %w", err)
	}
	img, err := utils.DecodeDataURL(resp.Image)
	if err != nil {
		return err
	}
	return utils.SavePNG(testCtx.Path(file), img)
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("status is %d, expected %d\nbody: %s", testCtx.LastHTTPStatusCode, status, testCtx.LastHTTPResponse)
	}
	return nil
}

// theJSONFieldShouldBe walks a dotted path such as "record.name" through the
// last response body.
func (testCtx *TestContext) theJSONFieldShouldBe(path, want string) error {
	var doc any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &doc); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	cur := doc
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: %q is not an object", path, key)
		}
		if cur, ok = obj[key]; !ok {
			return fmt.Errorf("%s: missing key %q\nbody: %s", path, key, testCtx.LastHTTPResponse)
		}
	}
	if got := fmt.Sprint(cur); got != want {
		return fmt.Errorf("%s is %q, expected %q", path, got, want)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain %q\nbody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, want string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != want {
		return fmt.Errorf("header %s is %q, expected %q", name, got, want)
	}
	return nil
}
