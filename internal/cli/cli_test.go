package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/utils"
)

func TestParseRunArgs(t *testing.T) {
	ra, err := ParseRunArgs([]string{
		"-f", "a.json", "b.json", "-e", "x.json", "-o", "out",
		"--runs=20", "--threads[1]", "4", "--payloads", `[{"n":`, `1}]`})
	utils.AssertNil(t, err)
	utils.AssertSliceEquals(t, []string{"a.json", "b.json"}, ra.Functions)
	utils.AssertSliceEquals(t, []string{"x.json"}, ra.Experiments)
	utils.AssertEquals(t, "out", ra.OutDir)
	utils.AssertMapEquals(t, map[string]string{"runs": "20", "threads[1]": "4", "payloads": `[{"n":1}]`}, ra.Overrides)
}

func TestParseRunArgsDefaults(t *testing.T) {
	ra, err := ParseRunArgs([]string{"--endpoint[0]=http://a?x=1"})
	utils.AssertNil(t, err)
	utils.AssertEquals(t, DefaultOutDir, ra.OutDir)
	utils.AssertEquals(t, "http://a?x=1", ra.Overrides["endpoint[0]"])

	_, err = ParseRunArgs([]string{"stray"})
	utils.AssertNonNil(t, err)
	_, err = ParseRunArgs([]string{"--runs[x]=1"})
	utils.AssertNonNil(t, err)
}

func TestOverridesFor(t *testing.T) {
	overrides := map[string]string{"runs": "10", "runs[1]": "4", "threads[0]": "2"}
	utils.AssertMapEquals(t, map[string]string{"runs": "10", "threads": "2"}, overridesFor(overrides, 0))
	utils.AssertMapEquals(t, map[string]string{"runs": "4"}, overridesFor(overrides, 1))
	utils.AssertMapEquals(t, map[string]string{"runs": "10"}, overridesFor(overrides, 2))
	utils.AssertEquals(t, 2, defaultCount(overrides))
	utils.AssertEquals(t, 1, defaultCount(map[string]string{}))
}

func TestLoadAppliesOverrides(t *testing.T) {
	ra := &RunArgs{Overrides: map[string]string{
		"function[1]": "second", "platform": "HTTP", "runs": "4", "threads[1]": "2", "passPayloads": "true"}}
	functions, experiments, err := ra.Load()
	utils.AssertNil(t, err)
	utils.AssertEquals(t, 2, len(functions))
	utils.AssertEquals(t, 2, len(experiments))
	utils.AssertEquals(t, "HELLOWORLD", functions[0].Name)
	utils.AssertEquals(t, "second", functions[1].Name)
	utils.AssertEquals(t, function.HTTP, functions[1].Platform)
	utils.AssertEquals(t, 4, experiments[0].Runs)
	utils.AssertEquals(t, 10, experiments[0].Threads)
	utils.AssertEquals(t, 2, experiments[1].Threads)
	utils.AssertTrue(t, experiments[1].PassPayloads)
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "hello.json")
	exp := filepath.Join(dir, "load.json")
	utils.AssertNil(t, os.WriteFile(fn, []byte(`{"function":"hello","platform":"Google"}`), 0644))
	utils.AssertNil(t, os.WriteFile(exp, []byte(`{"runs":2,"threads":1}`), 0644))

	ra := &RunArgs{Functions: []string{fn}, Experiments: []string{exp}, Overrides: map[string]string{"runs": "6"}}
	functions, experiments, err := ra.Load()
	utils.AssertNil(t, err)
	utils.AssertEquals(t, 1, len(functions))
	utils.AssertEquals(t, function.Google, functions[0].Platform)
	utils.AssertEquals(t, "load", experiments[0].Name)
	utils.AssertEquals(t, 6, experiments[0].Runs)
}

func TestParsePayload(t *testing.T) {
	payload, err := parsePayload([]string{"name:bob", "url:http://x"})
	utils.AssertNil(t, err)
	utils.AssertEquals(t, "bob", payload["name"].(string))
	utils.AssertEquals(t, "http://x", payload["url"].(string))
	_, err = parsePayload([]string{"bad"})
	utils.AssertNonNil(t, err)
}

func TestGlobalFlags(t *testing.T) {
	defer func() { configFile, verbose = "", false }()
	rest, found := globalFlags([]string{"-f", "a.json", "--config", "conf.yaml", "-v", "--runs=2"})
	utils.AssertTrue(t, found)
	utils.AssertSliceEquals(t, []string{"-f", "a.json", "--runs=2"}, rest)
	utils.AssertEquals(t, "conf.yaml", configFile)
	utils.AssertTrue(t, verbose)

	rest, found = globalFlags([]string{"-e", "x.json"})
	utils.AssertFalse(t, found)
	utils.AssertEquals(t, 2, len(rest))
}
