package journal

import (
	"database/sql"
	"fmt"
	"time"
)

// SyncEvent is a recorded sync attempt
type SyncEvent struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Path      string    `json:"path"`
	Script    string    `json:"script"`
	ScriptID  int       `json:"script_id"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Duration  int64     `json:"duration_ms"`
}

// DeviceLog is a recorded device log line
type DeviceLog struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	DeviceTS  float64   `json:"device_ts"`
	Level     int       `json:"level"`
	Message   string    `json:"message"`
}

// RecentSyncs returns up to limit sync attempts, newest first
func (d *DB) RecentSyncs(limit int) ([]SyncEvent, error) {
	db := d.GetDB()
	if db == nil {
		return nil, fmt.Errorf("journal not initialized")
	}

	query := `
		SELECT id, created_at, path, script, script_id, action, status, error, duration
		FROM sync_events
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []SyncEvent
	for rows.Next() {
		var ev SyncEvent
		var createdAt string
		var scriptID, duration sql.NullInt64
		var errMsg sql.NullString

		if err := rows.Scan(&ev.ID, &createdAt, &ev.Path, &ev.Script, &scriptID,
			&ev.Action, &ev.Status, &errMsg, &duration); err != nil {
			return nil, err
		}
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		ev.ScriptID = int(scriptID.Int64)
		ev.Error = errMsg.String
		ev.Duration = duration.Int64
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecentDeviceLogs returns up to limit device log lines, newest first
func (d *DB) RecentDeviceLogs(limit int) ([]DeviceLog, error) {
	db := d.GetDB()
	if db == nil {
		return nil, fmt.Errorf("journal not initialized")
	}

	rows, err := db.Query(`
		SELECT id, created_at, device_ts, level, message
		FROM device_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var logs []DeviceLog
	for rows.Next() {
		var entry DeviceLog
		var createdAt string
		if err := rows.Scan(&entry.ID, &createdAt, &entry.DeviceTS, &entry.Level, &entry.Message); err != nil {
			return nil, err
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
