// Package syncer drives one local script file to a consistent state on the device.
package syncer

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/device"
	"github.com/dimasma0305/shellysync/internal/shelly/errors"
)

// DeviceAPI is the part of the device client the reconciler needs
type DeviceAPI interface {
	ListScripts() ([]device.Script, error)
	CreateScript(name string) (device.Script, error)
	PutCode(script device.Script, code string, appendCode bool) error
	StartScript(script device.Script) error
	StopScript(script device.Script) error
}

// Action is what a sync attempt did to the device
type Action string

const (
	ActionSkip   Action = "skip"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionStart  Action = "start"
)

// Result describes one finished sync attempt
type Result struct {
	Path     string
	Script   string
	ScriptID int
	Action   Action
	Err      error
	Duration time.Duration
}

// Recorder receives every sync attempt, e.g. to journal it
type Recorder interface {
	RecordSync(res Result)
}

// Reconciler pushes changed files to the device
type Reconciler struct {
	api        DeviceAPI
	extension  string
	injectStop bool
	chunkSize  int
	recorder   Recorder
}

// New creates a reconciler for api using the sync settings in conf
func New(api DeviceAPI, conf config.Config) *Reconciler {
	conf = conf.Normalize()
	return &Reconciler{
		api:        api,
		extension:  conf.Extension,
		injectStop: conf.InjectStopFunction,
		chunkSize:  conf.ChunkSize,
	}
}

// SetRecorder attaches a recorder; nil detaches it
func (r *Reconciler) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// ScriptName strips directory and extension from path
func ScriptName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Accepts reports whether path has the script extension
func (r *Reconciler) Accepts(path string) bool {
	return strings.EqualFold(filepath.Ext(path), r.extension)
}

// HandleFileChange lets the reconciler serve as the change watcher's handler
func (r *Reconciler) HandleFileChange(path string) error {
	return r.SyncFile(path)
}

// SyncFile creates or updates the script matching path and (re)starts it.
// Files without the script extension are ignored. The first failing step
// aborts the rest; touching the file again retries the whole sequence.
func (r *Reconciler) SyncFile(path string) error {
	if !r.Accepts(path) {
		log.DebugH2("Ignoring %s: not a %s file", path, r.extension)
		return nil
	}

	start := time.Now()
	res := Result{Path: path, Script: ScriptName(path)}
	res.Err = r.sync(path, &res)
	res.Duration = time.Since(start)
	r.record(res)

	if res.Err != nil {
		return res.Err
	}

	log.Info("%s has been uploaded to the device as script %d (%s)", filepath.Base(path), res.ScriptID, res.Action)
	return nil
}

func (r *Reconciler) sync(path string, res *Result) error {
	name := res.Script
	log.DebugH2("Syncing %s as script %q", path, name)

	//nolint:gosec // G304: path comes from the watched directory
	content, err := os.ReadFile(path)
	if err != nil {
		return &errors.LocalIOError{Op: "read", Path: path, Err: err}
	}
	code := r.transform(string(content))

	scripts, err := r.api.ListScripts()
	if err != nil {
		return errors.Wrap(err, "list scripts")
	}

	existing := device.Lookup(scripts, name)
	if existing == nil {
		res.Action = ActionCreate
		created, err := r.api.CreateScript(name)
		if err != nil {
			return errors.Wrapf(err, "create script %s", name)
		}
		res.ScriptID = created.ID
		if err := r.upload(created, code); err != nil {
			return err
		}
		return errors.Wrapf(r.api.StartScript(created), "start script %s", name)
	}

	res.Action = ActionUpdate
	res.ScriptID = existing.ID
	// stop first so the device never runs a half-written script
	if err := r.api.StopScript(*existing); err != nil {
		return errors.Wrapf(err, "stop script %s", name)
	}
	if err := r.upload(*existing, code); err != nil {
		return err
	}
	return errors.Wrapf(r.api.StartScript(*existing), "start script %s", name)
}

// upload replaces the script code, in chunks when a chunk size is configured
func (r *Reconciler) upload(script device.Script, code string) error {
	for i, chunk := range device.SplitCode(code, r.chunkSize) {
		if err := r.api.PutCode(script, chunk, i > 0); err != nil {
			return errors.Wrapf(err, "put code into script %s", script.Name)
		}
	}
	return nil
}

func (r *Reconciler) transform(code string) string {
	if !r.injectStop {
		return code
	}
	return code + StopFunction
}

func (r *Reconciler) record(res Result) {
	if r.recorder != nil {
		r.recorder.RecordSync(res)
	}
}

// StartByName starts the script called name, whatever its running state.
// It returns ErrScriptNotFound when the device has no such script.
func (r *Reconciler) StartByName(name string) error {
	start := time.Now()
	res := Result{Script: name, Action: ActionStart}

	res.Err = func() error {
		scripts, err := r.api.ListScripts()
		if err != nil {
			return errors.Wrap(err, "list scripts")
		}
		script := device.Lookup(scripts, name)
		if script == nil {
			return errors.Wrapf(errors.ErrScriptNotFound, "start %s", name)
		}
		res.ScriptID = script.ID
		return errors.Wrapf(r.api.StartScript(*script), "start script %s", name)
	}()
	res.Duration = time.Since(start)
	r.record(res)

	if res.Err != nil {
		return res.Err
	}
	log.Info("Script %s started", name)
	return nil
}
