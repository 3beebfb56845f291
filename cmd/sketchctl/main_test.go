package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/sketchmatch/internal/adapters/http/api"
	service "github.com/okian/sketchmatch/internal/app"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func rankFixtures(t *testing.T) (ref string, records []string) {
	t.Helper()
	dir := t.TempDir()
	ref = writeFile(t, dir, "ref.json", `[{"x":0,"y":0},{"x":1,"y":1},{"x":2,"y":0}]`)
	records = []string{
		writeFile(t, dir, "flat.json", `{"samples":[{"v":1},{"v":1},{"v":1}]}`),
		writeFile(t, dir, "peak.json", `{"samples":[{"v":0},{"v":5},{"v":0}]}`),
		writeFile(t, dir, "broken.json", `{"other":[]}`),
	}
	return ref, records
}

func TestRankTable(t *testing.T) {
	ref, records := rankFixtures(t)
	args := append([]string{"rank", "--reference=" + ref, "--array-field=samples", "--value-field=v", "--method=frechet"}, records...)

	out, errOut, err := execute(t, args...)
	if err != nil {
		t.Fatalf("rank: %v\n%s", err, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, two rows and a skip line, got %q", out)
	}
	if !strings.HasPrefix(lines[1], "1") || !strings.Contains(lines[1], "peak.json") {
		t.Errorf("peak should rank first, got %q", lines[1])
	}
	if lines[3] != "1 skipped" {
		t.Errorf("unexpected skip line %q", lines[3])
	}
	if !strings.Contains(errOut, "skipped broken.json") || !strings.Contains(errOut, "progress 100%") {
		t.Errorf("stderr should report the skip and final progress, got %q", errOut)
	}
}

func TestRankJSON(t *testing.T) {
	ref, records := rankFixtures(t)
	args := append([]string{"rank", "--reference", ref, "--array-field", "samples", "--value-field", "v", "--json", "--quiet"}, records[:2]...)

	out, errOut, err := execute(t, args...)
	if err != nil {
		t.Fatalf("rank: %v\n%s", err, errOut)
	}
	if errOut != "" {
		t.Errorf("quiet run should not print progress, got %q", errOut)
	}
	var got struct {
		Results []struct {
			Rank int    `json:"rank"`
			Name string `json:"name"`
		} `json:"results"`
		Skipped int `json:"skipped"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, out)
	}
	if len(got.Results) != 2 || got.Results[0].Name != "peak.json" || got.Results[0].Rank != 1 {
		t.Errorf("unexpected results %+v", got.Results)
	}
}

func TestRankErrors(t *testing.T) {
	ref, records := rankFixtures(t)

	if _, _, err := execute(t, "rank", "--array-field=samples", "--value-field=v", records[0]); err == nil {
		t.Error("missing --reference should fail")
	}
	if _, _, err := execute(t, "rank", "--reference="+ref, "--array-field=samples", "--value-field=v", "--method=cosine", records[0]); err == nil {
		t.Error("unknown method should fail")
	}
	if _, _, err := execute(t, "rank", "--reference="+ref, "--array-field=samples", "--value-field=v", "--resolution=0", records[0]); err == nil {
		t.Error("invalid resolution should fail the run")
	}
	if _, _, err := execute(t, "rank", "--reference=/nonexistent.json", "--array-field=samples", "--value-field=v", records[0]); err == nil {
		t.Error("unreadable reference should fail")
	}
}

func TestSchema(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rec.json", `{"meta":{},"samples":[{"t":0,"v":1}],"events":[{"at":1,"kind":"x"}]}`)

	out, _, err := execute(t, "schema", path)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(out, "Arrays:   events, samples") || !strings.Contains(out, "Elements: at, kind") {
		t.Errorf("unexpected output %q", out)
	}

	out, _, err = execute(t, "schema", "--array-field=samples", path)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(out, "Elements: t, v") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestProbe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := service.New(service.WithWorkerCount(2))
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer svc.Stop()
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, errOut, err := execute(t, "probe", "--url="+srv.URL, "--batches=3", "--candidates=4", "--points=16", "--workers=2")
	if err != nil {
		t.Fatalf("probe: %v\n%s", err, errOut)
	}
	if !strings.HasPrefix(out, "matched 3/3") {
		t.Errorf("unexpected output %q", out)
	}
}
