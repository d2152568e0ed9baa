package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// scanReport mirrors the JSON printed by "checkcode scan ... -f json".
type scanReport struct {
	Status  string `json:"status"`
	Content string `json:"content"`
	Action  *struct {
		Kind   string `json:"kind"`
		Target string `json:"target"`
	} `json:"action"`
	Record *struct {
		Name   string `json:"name"`
		Author string `json:"author"`
	} `json:"record"`
	Page int `json:"page"`
}

// RegisterCommonSteps registers the command execution steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a fresh registry$`, testCtx.aFreshRegistry)
	sc.Step(`^I run checkcode with "([^"]*)"$`, testCtx.iRunCheckcodeWith)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the error output should contain "([^"]*)"$`, testCtx.theErrorOutputShouldContain)
	sc.Step(`^the scan status should be "([^"]*)"$`, testCtx.theScanStatusShouldBe)
	sc.Step(`^the scanned record should be named "([^"]*)"$`, testCtx.theScannedRecordShouldBeNamed)
	sc.Step(`^the scanned action should be "([^"]*)" with target "([^"]*)"$`, testCtx.theScannedActionShouldBe)
	sc.Step(`^the code was found on page (\d+)$`, testCtx.theCodeWasFoundOnPage)
}

func (testCtx *TestContext) aFreshRegistry() error {
	// Each scenario owns its working directory, so the journal starts empty.
	return nil
}

// runCLI executes the binary inside the scenario directory against the
// scenario's registry journal.
func (testCtx *TestContext) runCLI(args ...string) error {
	full := append([]string{"--registry", "memory", "--registry-path", testCtx.RegistryPath}, args...)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, testCtx.BinPath, full...) //nolint:gosec // G204: binary built by TestMain
	cmd.Dir = testCtx.WorkDir
	cmd.Env = append(cmd.Environ(), testCtx.EnvVars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	testCtx.LastArgs = full
	testCtx.LastStartTime = time.Now()
	err := cmd.Run()
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastExitCode = 0

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		testCtx.LastExitCode = exitErr.ExitCode()
		return nil
	}
	return err
}

func (testCtx *TestContext) iRunCheckcodeWith(args string) error {
	return testCtx.runCLI(strings.Fields(args)...)
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command %v exited with %d\nstdout: %s\nstderr: %s",
			testCtx.LastArgs, testCtx.LastExitCode, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command %v succeeded, expected failure\nstdout: %s", testCtx.LastArgs, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(text string) error {
	if !strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output does not contain %q\noutput: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output contains %q\noutput: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorOutputShouldContain(text string) error {
	if !strings.Contains(testCtx.LastStderr, text) {
		return fmt.Errorf("stderr does not contain %q\nstderr: %s", text, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) lastScan() (scanReport, error) {
	var report scanReport
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &report); err != nil {
		return report, fmt.Errorf("output is not a scan report: %w\noutput: %s\nstderr: %s",
			err, testCtx.LastOutput, testCtx.LastStderr)
	}
	return report, nil
}

func (testCtx *TestContext) theScanStatusShouldBe(status string) error {
	report, err := testCtx.lastScan()
	if err != nil {
		return err
	}
	if report.Status != status {
		return fmt.Errorf("scan status is %q, expected %q", report.Status, status)
	}
	return nil
}

func (testCtx *TestContext) theScannedRecordShouldBeNamed(name string) error {
	report, err := testCtx.lastScan()
	if err != nil {
		return err
	}
	if report.Record == nil {
		return errors.New("scan report has no record")
	}
	if report.Record.Name != name {
		return fmt.Errorf("record name is %q, expected %q", report.Record.Name, name)
	}
	return nil
}

func (testCtx *TestContext) theScannedActionShouldBe(kind, target string) error {
	report, err := testCtx.lastScan()
	if err != nil {
		return err
	}
	if report.Action == nil {
		return errors.New("scan report has no action")
	}
	if report.Action.Kind != kind || report.Action.Target != target {
		return fmt.Errorf("action is %s %q, expected %s %q", report.Action.Kind, report.Action.Target, kind, target)
	}
	return nil
}

func (testCtx *TestContext) theCodeWasFoundOnPage(page int) error {
	report, err := testCtx.lastScan()
	if err != nil {
		return err
	}
	if report.Page != page {
		return fmt.Errorf("code found on page %d, expected %d", report.Page, page)
	}
	return nil
}
