package metrics

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"
)

func TestNew_AutoDimension(t *testing.T) {
	initOnce.Do(func() {}) // Reset once
	serviceName = "panelforge-worker"

	r := New("TestNamespace")
	if r.namespace != "TestNamespace" {
		t.Errorf("expected namespace TestNamespace, got %s", r.namespace)
	}
	if r.dimensions["Service"] != "panelforge-worker" {
		t.Errorf("expected Service dimension panelforge-worker, got %s", r.dimensions["Service"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	serviceName = "" // Clear for test isolation

	rec := New("Panelforge/Jobs")
	rec.Dimension("TimedOut", "false")
	rec.DurationMs("JobDuration", 1234*time.Millisecond)
	rec.Count("FallbacksUsed", 2)
	rec.Property("jobId", "job-abc123")
	rec.Flush()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, output)
	}

	awsDir, ok := doc["_aws"]
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	awsMap, ok := awsDir.(map[string]interface{})
	if !ok {
		t.Fatal("_aws directive is not a map")
	}
	if _, ok := awsMap["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}

	cwMetrics, ok := awsMap["CloudWatchMetrics"]
	if !ok {
		t.Fatal("missing CloudWatchMetrics in _aws directive")
	}
	cwArr, ok := cwMetrics.([]interface{})
	if !ok || len(cwArr) == 0 {
		t.Fatal("CloudWatchMetrics should be a non-empty array")
	}
	cw := cwArr[0].(map[string]interface{})
	if cw["Namespace"] != "Panelforge/Jobs" {
		t.Errorf("Namespace = %v, want Panelforge/Jobs", cw["Namespace"])
	}

	if doc["JobDuration"] != 1234.0 {
		t.Errorf("JobDuration = %v, want 1234", doc["JobDuration"])
	}
	if doc["FallbacksUsed"] != 2.0 {
		t.Errorf("FallbacksUsed = %v, want 2", doc["FallbacksUsed"])
	}
	if doc["TimedOut"] != "false" {
		t.Errorf("TimedOut = %v, want \"false\"", doc["TimedOut"])
	}
	if doc["jobId"] != "job-abc123" {
		t.Errorf("jobId = %v, want job-abc123", doc["jobId"])
	}
}

func TestRecorder_FlushEmptyIsSilent(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	New("Panelforge/Jobs").Flush()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	if buf.Len() != 0 {
		t.Errorf("Flush with no metrics wrote %q, want nothing", buf.String())
	}
}
