// Package testutil provides in-process fakes of the device RPC surface and
// the device log stream for tests.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/icholy/digest"
)

const fakeRealm = "shellyplus1-fake"

// Call is one authenticated RPC received by the fake device
type Call struct {
	Endpoint string
	Body     map[string]any
}

// ID returns the integer "id" field of the call body, or -1
func (c Call) ID() int {
	if v, ok := c.Body["id"].(float64); ok {
		return int(v)
	}
	return -1
}

// FakeScript is a script stored on the fake device
type FakeScript struct {
	ID      int
	Name    string
	Code    string
	Enable  bool
	Running bool
}

type failure struct {
	status int
	body   string
}

// FakeDevice is an httptest server speaking the Script.* RPC subset behind
// HTTP digest authentication.
type FakeDevice struct {
	Server   *httptest.Server
	Username string
	Password string

	mu        sync.Mutex
	nonce     string
	scripts   map[int]*FakeScript
	nextID    int
	calls     []Call
	hits      int
	failures  map[string]failure
	overrides map[string]string
}

// NewFakeDevice starts a fake device accepting username/password
func NewFakeDevice(t *testing.T, username, password string) *FakeDevice {
	t.Helper()

	d := &FakeDevice{
		Username:  username,
		Password:  password,
		nonce:     newNonce(),
		scripts:   make(map[int]*FakeScript),
		nextID:    1,
		failures:  make(map[string]failure),
		overrides: make(map[string]string),
	}
	d.Server = httptest.NewServer(http.HandlerFunc(d.serveHTTP))
	t.Cleanup(d.Server.Close)
	return d
}

func newNonce() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Host returns host:port of the fake device, as configured by users
func (d *FakeDevice) Host() string {
	return strings.TrimPrefix(d.Server.URL, "http://")
}

// AddScript stores a script and returns its id
func (d *FakeDevice) AddScript(name string, running bool) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.scripts[id] = &FakeScript{ID: id, Name: name, Enable: true, Running: running}
	return id
}

// SetNextID sets the id assigned by the next Script.Create
func (d *FakeDevice) SetNextID(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID = id
}

// FailWith makes every call to endpoint answer status with body
func (d *FakeDevice) FailWith(endpoint string, status int, body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[endpoint] = failure{status: status, body: body}
}

// RespondWith makes endpoint answer 200 with a raw body
func (d *FakeDevice) RespondWith(endpoint, body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.overrides[endpoint] = body
}

// Calls returns the authenticated RPCs received so far
func (d *FakeDevice) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Endpoints returns the endpoint of every authenticated RPC, in order
func (d *FakeDevice) Endpoints() []string {
	calls := d.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Endpoint)
	}
	return out
}

// Hits counts every HTTP request, including unauthenticated challenges
func (d *FakeDevice) Hits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hits
}

// Script returns a copy of a stored script
func (d *FakeDevice) Script(id int) (FakeScript, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.scripts[id]
	if !ok {
		return FakeScript{}, false
	}
	return *s, true
}

// ScriptNames lists the stored script names, sorted
func (d *FakeDevice) ScriptNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.scripts))
	for _, s := range d.scripts {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

func (d *FakeDevice) challenge() *digest.Challenge {
	return &digest.Challenge{
		Realm: fakeRealm,
		Nonce: d.nonce,
		QOP:   []string{"auth"},
	}
}

func (d *FakeDevice) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if header == "" {
		return false
	}
	creds, err := digest.ParseCredentials(header)
	if err != nil || creds.Username != d.Username || creds.Nonce != d.nonce {
		return false
	}
	expected, err := digest.Digest(d.challenge(), digest.Options{
		Method:   r.Method,
		URI:      creds.URI,
		Count:    creds.Nc,
		Cnonce:   creds.Cnonce,
		Username: d.Username,
		Password: d.Password,
	})
	if err != nil {
		return false
	}
	return expected.Response == creds.Response
}

func (d *FakeDevice) serveHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.hits++
	d.mu.Unlock()

	if !d.authorized(r) {
		w.Header().Set("WWW-Authenticate", d.challenge().String())
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":401,"message":"unauthorized"}`))
		return
	}

	body := map[string]any{}
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, Call{Endpoint: r.URL.Path, Body: body})

	if f, ok := d.failures[r.URL.Path]; ok {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
		return
	}
	if raw, ok := d.overrides[r.URL.Path]; ok {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(raw))
		return
	}

	call := d.calls[len(d.calls)-1]
	switch r.URL.Path {
	case "/rpc/Script.List":
		d.writeList(w)
	case "/rpc/Script.Create":
		name, _ := body["name"].(string)
		id := d.nextID
		d.nextID++
		d.scripts[id] = &FakeScript{ID: id, Name: name}
		writeJSON(w, map[string]any{"id": id})
	case "/rpc/Script.PutCode":
		s, ok := d.scripts[call.ID()]
		if !ok {
			http.Error(w, "no such script", http.StatusNotFound)
			return
		}
		code, _ := body["code"].(string)
		if appendCode, _ := body["append"].(bool); appendCode {
			s.Code += code
		} else {
			s.Code = code
		}
		writeJSON(w, map[string]any{"len": len(s.Code)})
	case "/rpc/Script.Start", "/rpc/Script.Stop":
		s, ok := d.scripts[call.ID()]
		if !ok {
			http.Error(w, "no such script", http.StatusNotFound)
			return
		}
		was := s.Running
		s.Running = r.URL.Path == "/rpc/Script.Start"
		writeJSON(w, map[string]any{"was_running": was})
	default:
		http.Error(w, fmt.Sprintf("unknown method %s", r.URL.Path), http.StatusNotFound)
	}
}

func (d *FakeDevice) writeList(w http.ResponseWriter) {
	ids := make([]int, 0, len(d.scripts))
	for id := range d.scripts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	list := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		s := d.scripts[id]
		list = append(list, map[string]any{
			"id":      s.ID,
			"name":    s.Name,
			"enable":  s.Enable,
			"running": s.Running,
		})
	}
	writeJSON(w, map[string]any{"scripts": list})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
