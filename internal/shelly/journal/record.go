package journal

import (
	"time"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/logstream"
	"github.com/dimasma0305/shellysync/internal/shelly/syncer"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// RecordSync stores one sync attempt. Failures to write are logged and dropped.
func (d *DB) RecordSync(res syncer.Result) {
	if !d.enabled {
		return
	}
	db := d.GetDB()
	if db == nil {
		return
	}

	status, errMsg := StatusOK, ""
	if res.Err != nil {
		status, errMsg = StatusFailed, res.Err.Error()
	}

	query := `
		INSERT INTO sync_events (created_at, path, script, script_id, action, status, error, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query, now(), res.Path, res.Script, res.ScriptID, string(res.Action), status, errMsg, res.Duration.Milliseconds())
	if err != nil {
		log.Warn("Failed to record sync of %s: %v", res.Script, err)
	}
}

// RecordDeviceLog stores one line of the device log
func (d *DB) RecordDeviceLog(msg logstream.Message) {
	if !d.enabled {
		return
	}
	db := d.GetDB()
	if db == nil {
		return
	}

	query := `INSERT INTO device_logs (created_at, device_ts, level, message) VALUES (?, ?, ?, ?)`
	if _, err := db.Exec(query, now(), msg.Timestamp, msg.Level, msg.Text); err != nil {
		log.Warn("Failed to record device log: %v", err)
	}
}
