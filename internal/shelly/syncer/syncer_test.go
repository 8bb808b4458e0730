//nolint:errcheck,gosec,revive // Test file with acceptable error handling patterns
package syncer

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/device"
	"github.com/dimasma0305/shellysync/internal/shelly/errors"
	"github.com/dimasma0305/shellysync/internal/shelly/testutil"
)

// mockDevice records the operations invoked by the reconciler
type mockDevice struct {
	scripts []device.Script
	nextID  int
	calls   []string
	code    map[int]string
	fail    map[string]error
}

func newMockDevice(scripts ...device.Script) *mockDevice {
	return &mockDevice{scripts: scripts, nextID: 7, code: map[int]string{}, fail: map[string]error{}}
}

func (m *mockDevice) ListScripts() ([]device.Script, error) {
	m.calls = append(m.calls, "list")
	if err := m.fail["list"]; err != nil {
		return nil, err
	}
	return append([]device.Script(nil), m.scripts...), nil
}

func (m *mockDevice) CreateScript(name string) (device.Script, error) {
	m.calls = append(m.calls, "create("+name+")")
	if err := m.fail["create"]; err != nil {
		return device.Script{}, err
	}
	s := device.Script{ID: m.nextID, Name: name}
	m.nextID++
	m.scripts = append(m.scripts, s)
	return s, nil
}

func (m *mockDevice) PutCode(s device.Script, code string, appendCode bool) error {
	m.calls = append(m.calls, fmt.Sprintf("put(%d,%v)", s.ID, appendCode))
	if err := m.fail["put"]; err != nil {
		return err
	}
	if appendCode {
		m.code[s.ID] += code
	} else {
		m.code[s.ID] = code
	}
	return nil
}

func (m *mockDevice) StartScript(s device.Script) error {
	m.calls = append(m.calls, fmt.Sprintf("start(%d)", s.ID))
	return m.fail["start"]
}

func (m *mockDevice) StopScript(s device.Script) error {
	m.calls = append(m.calls, fmt.Sprintf("stop(%d)", s.ID))
	return m.fail["stop"]
}

type recorderFunc func(Result)

func (f recorderFunc) RecordSync(res Result) { f(res) }

func boolPtr(b bool) *bool { return &b }

func writeScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func plainConfig() config.Config {
	conf := config.Default()
	conf.InjectStopFunction = false
	return conf
}

func TestScriptName(t *testing.T) {
	for in, want := range map[string]string{
		"/home/me/scripts/blink.js": "blink",
		"blink.js":                  "blink",
		"dir/v1.2.js":               "v1.2",
		"noext":                     "noext",
	} {
		if got := ScriptName(in); got != want {
			t.Errorf("ScriptName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSyncFile_IgnoresOtherExtensions(t *testing.T) {
	for _, name := range []string{"notes.txt", "blink.js.swp", "README", "blink.ts"} {
		t.Run(name, func(t *testing.T) {
			mock := newMockDevice()
			r := New(mock, plainConfig())

			if err := r.SyncFile(writeScript(t, name, "x")); err != nil {
				t.Fatalf("SyncFile() = %v, want nil", err)
			}
			if len(mock.calls) != 0 {
				t.Errorf("Device should not be called, got %v", mock.calls)
			}
		})
	}
}

func TestSyncFile_IgnoresMissingNonScript(t *testing.T) {
	mock := newMockDevice()
	r := New(mock, plainConfig())

	// extension check comes before the read
	if err := r.SyncFile("/does/not/exist.txt"); err != nil {
		t.Fatalf("SyncFile() = %v, want nil", err)
	}
}

func TestSyncFile_NewScript(t *testing.T) {
	mock := newMockDevice()
	r := New(mock, plainConfig())

	if err := r.SyncFile(writeScript(t, "blink.js", "print(1);")); err != nil {
		t.Fatalf("SyncFile() failed: %v", err)
	}

	want := []string{"list", "create(blink)", "put(7,false)", "start(7)"}
	if diff := cmp.Diff(want, mock.calls); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
	if mock.code[7] != "print(1);" {
		t.Errorf("Unexpected uploaded code %q", mock.code[7])
	}
}

func TestSyncFile_ExistingScript(t *testing.T) {
	mock := newMockDevice(device.Script{ID: 7, Name: "blink", Running: boolPtr(true)})
	r := New(mock, plainConfig())

	if err := r.SyncFile(writeScript(t, "blink.js", "print(2);")); err != nil {
		t.Fatalf("SyncFile() failed: %v", err)
	}

	want := []string{"list", "stop(7)", "put(7,false)", "start(7)"}
	if diff := cmp.Diff(want, mock.calls); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncFile_Idempotent(t *testing.T) {
	mock := newMockDevice()
	r := New(mock, plainConfig())
	path := writeScript(t, "blink.js", "print(1);")

	var ids []int
	r.SetRecorder(recorderFunc(func(res Result) { ids = append(ids, res.ScriptID) }))

	for i := 0; i < 2; i++ {
		if err := r.SyncFile(path); err != nil {
			t.Fatalf("SyncFile() #%d failed: %v", i+1, err)
		}
	}

	if len(mock.scripts) != 1 {
		t.Fatalf("Expected a single script on the device, got %v", mock.scripts)
	}
	if len(ids) != 2 || ids[0] != ids[1] {
		t.Errorf("Expected the same id both times, got %v", ids)
	}
}

func TestSyncFile_AbortsOnFirstFailure(t *testing.T) {
	tests := []struct {
		name      string
		existing  bool
		failAt    string
		wantCalls []string
	}{
		{"list", false, "list", []string{"list"}},
		{"create", false, "create", []string{"list", "create(blink)"}},
		{"put after create", false, "put", []string{"list", "create(blink)", "put(7,false)"}},
		{"start after create", false, "start", []string{"list", "create(blink)", "put(7,false)", "start(7)"}},
		{"stop", true, "stop", []string{"list", "stop(3)"}},
		{"put after stop", true, "put", []string{"list", "stop(3)", "put(3,false)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockDevice()
			if tt.existing {
				mock.scripts = []device.Script{{ID: 3, Name: "blink"}}
			}
			cause := &errors.ServerError{Code: 500}
			mock.fail[tt.failAt] = cause
			r := New(mock, plainConfig())

			err := r.SyncFile(writeScript(t, "blink.js", "x"))
			var se *errors.ServerError
			if !errors.As(err, &se) {
				t.Fatalf("Expected the ServerError to surface, got %v", err)
			}
			if diff := cmp.Diff(tt.wantCalls, mock.calls); diff != "" {
				t.Errorf("call sequence mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSyncFile_ReadFailure(t *testing.T) {
	mock := newMockDevice()
	r := New(mock, plainConfig())

	err := r.SyncFile(filepath.Join(t.TempDir(), "gone.js"))
	var le *errors.LocalIOError
	if !errors.As(err, &le) {
		t.Fatalf("Expected LocalIOError, got %v", err)
	}
	if len(mock.calls) != 0 {
		t.Errorf("Device should not be called after a read failure, got %v", mock.calls)
	}
}

func TestSyncFile_InjectsStopFunction(t *testing.T) {
	mock := newMockDevice()
	r := New(mock, config.Default())

	if err := r.SyncFile(writeScript(t, "blink.js", "print(1);")); err != nil {
		t.Fatal(err)
	}
	if mock.code[7] != "print(1);"+StopFunction {
		t.Errorf("Expected stop function to be appended, got %q", mock.code[7])
	}
	if !strings.Contains(StopFunction, `"Script.Stop"`) {
		t.Error("Stop function should call Script.Stop")
	}
}

func TestSyncFile_Chunked(t *testing.T) {
	mock := newMockDevice()
	conf := plainConfig()
	conf.ChunkSize = 4
	r := New(mock, conf)

	if err := r.SyncFile(writeScript(t, "blink.js", "0123456789")); err != nil {
		t.Fatal(err)
	}

	want := []string{"list", "create(blink)", "put(7,false)", "put(7,true)", "put(7,true)", "start(7)"}
	if diff := cmp.Diff(want, mock.calls); diff != "" {
		t.Errorf("call sequence mismatch (-want +got):\n%s", diff)
	}
	if mock.code[7] != "0123456789" {
		t.Errorf("Chunks did not reassemble: %q", mock.code[7])
	}
}

func TestSyncFile_CustomExtension(t *testing.T) {
	mock := newMockDevice()
	conf := plainConfig()
	conf.Extension = "mjs"
	r := New(mock, conf)

	r.SyncFile(writeScript(t, "blink.js", "x"))
	if len(mock.calls) != 0 {
		t.Fatalf(".js should be ignored with extension mjs, got %v", mock.calls)
	}
	if err := r.SyncFile(writeScript(t, "blink.mjs", "x")); err != nil {
		t.Fatal(err)
	}
	if len(mock.calls) == 0 {
		t.Error(".mjs should be synced")
	}
}

func TestSyncFile_RecordsResult(t *testing.T) {
	mock := newMockDevice()
	r := New(mock, plainConfig())

	var got []Result
	r.SetRecorder(recorderFunc(func(res Result) { got = append(got, res) }))

	path := writeScript(t, "blink.js", "x")
	r.SyncFile(path)
	mock.fail["stop"] = &errors.ClientRequestError{Code: 404}
	r.SyncFile(path)

	if len(got) != 2 {
		t.Fatalf("Expected 2 recorded results, got %d", len(got))
	}
	if got[0].Action != ActionCreate || got[0].Err != nil || got[0].ScriptID != 7 {
		t.Errorf("Unexpected first result: %+v", got[0])
	}
	if got[1].Action != ActionUpdate || got[1].Err == nil {
		t.Errorf("Unexpected second result: %+v", got[1])
	}
}

func TestStartByName(t *testing.T) {
	mock := newMockDevice(device.Script{ID: 4, Name: "relay", Running: boolPtr(false)})
	r := New(mock, plainConfig())

	if err := r.StartByName("relay"); err != nil {
		t.Fatalf("StartByName() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"list", "start(4)"}, mock.calls); diff != "" {
		t.Errorf("call sequence mismatch (-want +got):\n%s", diff)
	}

	if err := r.StartByName("missing"); !errors.Is(err, errors.ErrScriptNotFound) {
		t.Errorf("Expected ErrScriptNotFound, got %v", err)
	}
}

// The scenarios below run against the digest-authenticated fake device.

func newDeviceReconciler(t *testing.T, autorun bool) (*Reconciler, *testutil.FakeDevice) {
	t.Helper()
	dev := testutil.NewFakeDevice(t, "admin", "secret")
	conf := plainConfig()
	conf.Host = dev.Host()
	conf.Creds = config.Credentials{Username: "admin", Password: "secret"}
	conf.Autorun = autorun

	client, err := device.New(conf)
	if err != nil {
		t.Fatal(err)
	}
	return New(client, conf), dev
}

func TestScenario_NewBlink(t *testing.T) {
	var out bytes.Buffer
	log.SetOutput(&out, &out)
	t.Cleanup(func() { log.SetOutput(os.Stdout, os.Stderr) })

	r, dev := newDeviceReconciler(t, false)
	dev.SetNextID(7)

	if err := r.SyncFile(writeScript(t, "blink.js", "print('hi');")); err != nil {
		t.Fatalf("SyncFile() failed: %v", err)
	}

	want := []string{device.EndpointList, device.EndpointCreate, device.EndpointPutCode, device.EndpointStart}
	if diff := cmp.Diff(want, dev.Endpoints()); diff != "" {
		t.Errorf("RPC sequence mismatch (-want +got):\n%s", diff)
	}

	calls := dev.Calls()
	if calls[1].Body["name"] != "blink" {
		t.Errorf("Expected create(blink), got %v", calls[1].Body)
	}
	if calls[2].ID() != 7 || calls[2].Body["append"] != false || calls[2].Body["code"] != "print('hi');" {
		t.Errorf("Unexpected PutCode body %v", calls[2].Body)
	}
	if calls[3].ID() != 7 {
		t.Errorf("Expected start(7), got %v", calls[3].Body)
	}

	if s, _ := dev.Script(7); !s.Running {
		t.Error("Script 7 should be running on the device")
	}
	if !strings.Contains(out.String(), "blink.js has been uploaded") {
		t.Errorf("Expected an informational success message, got %q", out.String())
	}
}

func TestScenario_ExistingRunningBlink(t *testing.T) {
	r, dev := newDeviceReconciler(t, true)
	dev.SetNextID(7)
	dev.AddScript("blink", true)

	if err := r.SyncFile(writeScript(t, "blink.js", "print(2);")); err != nil {
		t.Fatalf("SyncFile() failed: %v", err)
	}

	want := []string{device.EndpointList, device.EndpointStop, device.EndpointPutCode, device.EndpointStart}
	if diff := cmp.Diff(want, dev.Endpoints()); diff != "" {
		t.Errorf("RPC sequence mismatch (-want +got):\n%s", diff)
	}
	for _, c := range dev.Calls()[1:] {
		if c.ID() != 7 {
			t.Errorf("Expected every call to target id 7, got %v", c)
		}
	}
}

func TestScenario_ExistingRunningWithoutAutorun(t *testing.T) {
	r, dev := newDeviceReconciler(t, false)
	dev.AddScript("blink", true)

	if err := r.SyncFile(writeScript(t, "blink.js", "print(2);")); err != nil {
		t.Fatalf("SyncFile() failed: %v", err)
	}

	// the listed descriptor still says running, so start is a no-op
	want := []string{device.EndpointList, device.EndpointStop, device.EndpointPutCode}
	if diff := cmp.Diff(want, dev.Endpoints()); diff != "" {
		t.Errorf("RPC sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestScenario_Unauthorized(t *testing.T) {
	r, dev := newDeviceReconciler(t, false)
	dev.FailWith(device.EndpointList, http.StatusUnauthorized, "unauthorized")

	err := r.SyncFile(writeScript(t, "blink.js", "x"))
	var ce *errors.ClientRequestError
	if !errors.As(err, &ce) || ce.Code != http.StatusUnauthorized {
		t.Fatalf("Expected ClientRequestError{401}, got %v", err)
	}
	if diff := cmp.Diff([]string{device.EndpointList}, dev.Endpoints()); diff != "" {
		t.Errorf("No RPC may follow the failed list (-want +got):\n%s", diff)
	}
}

func TestScenario_IdempotentAgainstDevice(t *testing.T) {
	r, dev := newDeviceReconciler(t, true)
	path := writeScript(t, "blink.js", "x")

	for i := 0; i < 2; i++ {
		if err := r.SyncFile(path); err != nil {
			t.Fatalf("SyncFile() #%d failed: %v", i+1, err)
		}
	}

	if diff := cmp.Diff([]string{"blink"}, dev.ScriptNames()); diff != "" {
		t.Errorf("Duplicate script created (-want +got):\n%s", diff)
	}
}
