package device

import (
	"fmt"
	"unicode/utf8"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/errors"
)

// ListScripts returns every script stored on the device
func (c *Client) ListScripts() ([]Script, error) {
	var data listResponse
	if err := c.get(EndpointList, decodeInto(EndpointList, &data)); err != nil {
		return nil, err
	}

	if data.Scripts == nil {
		return nil, &errors.ParseError{Endpoint: EndpointList, Reason: "missing scripts array"}
	}

	scripts := make([]Script, 0, len(*data.Scripts))
	for i, entry := range *data.Scripts {
		if entry.ID == nil || entry.Name == nil {
			return nil, &errors.ParseError{
				Endpoint: EndpointList,
				Reason:   fmt.Sprintf("script entry %d lacks id or name", i),
			}
		}
		scripts = append(scripts, Script{
			ID:      *entry.ID,
			Name:    *entry.Name,
			Enable:  entry.Enable,
			Running: entry.Running,
		})
	}

	log.DebugH2("Device reports %d script(s)", len(scripts))
	return scripts, nil
}

// FindScript returns the script whose name matches, or nil when none does
func (c *Client) FindScript(name string) (*Script, error) {
	scripts, err := c.ListScripts()
	if err != nil {
		return nil, err
	}
	return Lookup(scripts, name), nil
}

// Lookup returns the first script named name, or nil
func Lookup(scripts []Script, name string) *Script {
	for i := range scripts {
		if scripts[i].Name == name {
			return &scripts[i]
		}
	}
	return nil
}

// CreateScript registers a new empty script. The device assigns the id; the
// enable and running state of the new script are unknown until the next list.
func (c *Client) CreateScript(name string) (Script, error) {
	var data createResponse
	if err := c.post(EndpointCreate, createRequest{Name: name}, decodeInto(EndpointCreate, &data)); err != nil {
		return Script{}, err
	}

	if data.ID == nil {
		return Script{}, &errors.ParseError{Endpoint: EndpointCreate, Reason: "missing id"}
	}

	log.DebugH2("Created script %s with id %d", name, *data.ID)
	return Script{ID: *data.ID, Name: name}, nil
}

// PutCode uploads code into script. With appendCode false the stored code is
// replaced, otherwise code is added to it.
func (c *Client) PutCode(script Script, code string, appendCode bool) error {
	return c.post(EndpointPutCode, putCodeRequest{
		ID:     script.ID,
		Code:   code,
		Append: appendCode,
	}, nil)
}

// StartScript starts script unless it is already running and autorun is off
func (c *Client) StartScript(script Script) error {
	if script.IsRunning() && !c.Autorun {
		log.DebugH2("Script %s is already running and autorun is off, not restarting", script.Name)
		return nil
	}
	return c.post(EndpointStart, idRequest{ID: script.ID}, nil)
}

// StopScript stops script unless the device already reported it as stopped
func (c *Client) StopScript(script Script) error {
	if script.IsStopped() {
		log.DebugH2("Script %s is not running, nothing to stop", script.Name)
		return nil
	}
	return c.post(EndpointStop, idRequest{ID: script.ID}, nil)
}

// SplitCode cuts code into pieces of at most size bytes without splitting a
// UTF-8 sequence. size <= 0 returns code as a single piece.
func SplitCode(code string, size int) []string {
	if size <= 0 || len(code) <= size {
		return []string{code}
	}

	chunks := make([]string, 0, len(code)/size+1)
	for len(code) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(code[cut]) {
			cut--
		}
		if cut == 0 {
			// a single rune wider than size
			_, width := utf8.DecodeRuneInString(code)
			cut = width
		}
		chunks = append(chunks, code[:cut])
		code = code[cut:]
	}
	if code != "" {
		chunks = append(chunks, code)
	}
	return chunks
}
