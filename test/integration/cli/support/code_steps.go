package support

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/checkcode/internal/testutil"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

// RegisterCodeSteps registers steps that create and scan code images.
func (testCtx *TestContext) RegisterCodeSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I generate a code for "([^"]*)" named "([^"]*)" into "([^"]*)"$`, testCtx.iGenerateACode)
	sc.Step(`^I generate a public code for "([^"]*)" named "([^"]*)" into "([^"]*)"$`, testCtx.iGenerateAPublicCode)
	sc.Step(`^I render an unregistered code for "([^"]*)" into "([^"]*)"$`, testCtx.iRenderAnUnregisteredCode)
	sc.Step(`^an image "([^"]*)" without a code$`, testCtx.anImageWithoutACode)
	sc.Step(`^a PDF "([^"]*)" with a blank page followed by "([^"]*)"$`, testCtx.aPDFWithABlankPageFollowedBy)
	sc.Step(`^a frame directory "([^"]*)" with (\d+) blank frames followed by "([^"]*)"$`, testCtx.aFrameDirectory)
	sc.Step(`^I scan the image "([^"]*)"$`, testCtx.iScanTheImage)
	sc.Step(`^I scan the PDF "([^"]*)"$`, testCtx.iScanThePDF)
	sc.Step(`^I scan the frames in "([^"]*)"$`, testCtx.iScanTheFrames)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
}

func (testCtx *TestContext) iGenerateACode(content, name, file string) error {
	return testCtx.generate(content, name, file, false)
}

func (testCtx *TestContext) iGenerateAPublicCode(content, name, file string) error {
	return testCtx.generate(content, name, file, true)
}

func (testCtx *TestContext) generate(content, name, file string, public bool) error {
	args := []string{"generate", content, "--name", name, "--author", "Integration", "-o", testCtx.Path(file)}
	if public {
		args = append(args, "--public")
	}
	if err := testCtx.runCLI(args...); err != nil {
		return err
	}
	return testCtx.theCommandShouldSucceed()
}

func (testCtx *TestContext) iRenderAnUnregisteredCode(content, file string) error {
	if err := testCtx.runCLI("render", content, "-o", testCtx.Path(file)); err != nil {
		return err
	}
	return testCtx.theCommandShouldSucceed()
}

func (testCtx *TestContext) anImageWithoutACode(file string) error {
	return utils.SavePNG(testCtx.Path(file), testutil.LabelImage("no code on this label", 320, 160))
}

func (testCtx *TestContext) aPDFWithABlankPageFollowedBy(file, image string) error {
	blank := testCtx.Path("blank-page.png")
	if err := utils.SavePNG(blank, testutil.LabelImage("cover page", 400, 300)); err != nil {
		return err
	}
	if err := api.ImportImagesFile([]string{blank, testCtx.Path(image)}, testCtx.Path(file), nil, nil); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func (testCtx *TestContext) aFrameDirectory(dir string, blanks int, image string) error {
	frames := testCtx.Path(dir)
	if err := os.MkdirAll(frames, 0o750); err != nil {
		return err
	}
	for i := range blanks {
		path := filepath.Join(frames, fmt.Sprintf("%03d.png", i))
		if err := utils.SavePNG(path, testutil.LabelImage(fmt.Sprintf("frame %d", i), 320, 240)); err != nil {
			return err
		}
	}
	data, err := os.ReadFile(testCtx.Path(image)) //nolint:gosec // G304: scenario paths
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(frames, fmt.Sprintf("%03d.png", blanks)), data, 0o600)
}

func (testCtx *TestContext) iScanTheImage(file string) error {
	return testCtx.runCLI("scan", "image", testCtx.Path(file), "-f", "json")
}

func (testCtx *TestContext) iScanThePDF(file string) error {
	return testCtx.runCLI("scan", "pdf", testCtx.Path(file), "-f", "json")
}

func (testCtx *TestContext) iScanTheFrames(dir string) error {
	return testCtx.runCLI("scan", "frames", testCtx.Path(dir), "-f", "json")
}

func (testCtx *TestContext) theFileShouldExist(file string) error {
	if !testutil.FileExists(testCtx.Path(file)) {
		return fmt.Errorf("file %s does not exist", file)
	}
	return nil
}
