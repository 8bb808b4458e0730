package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/dimasma0305/shellysync/internal/shelly/config"
)

// setupScriptsDir creates a watch directory with a mix of files
func setupScriptsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"blink.js", "relay.js", "notes.txt", ".blink.js.swp"} {
		//nolint:gosec // G306: Test file permissions are acceptable
		_ = os.WriteFile(filepath.Join(dir, name), []byte("// script\n"), 0644)
	}
	_ = os.MkdirAll(filepath.Join(dir, "lib.js"), 0750)
	return dir
}

func TestGetLocalScripts(t *testing.T) {
	dir := setupScriptsDir(t)
	conf := config.Default()
	conf.WatchPath = dir

	got, err := getLocalScripts(conf)
	if err != nil {
		t.Fatalf("getLocalScripts() failed: %v", err)
	}
	want := []string{filepath.Join(dir, "blink.js"), filepath.Join(dir, "relay.js")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scripts mismatch (-want +got):\n%s", diff)
	}
}

func TestGetLocalScripts_MissingDirectory(t *testing.T) {
	conf := config.Default()
	conf.WatchPath = filepath.Join(t.TempDir(), "missing")

	got, err := getLocalScripts(conf)
	if err != nil {
		t.Fatalf("getLocalScripts() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no scripts, got %v", got)
	}
}

func TestScriptNameCompletion(t *testing.T) {
	resetGlobalFlags(t)
	dir := setupScriptsDir(t)

	path := filepath.Join(t.TempDir(), "conf.yaml")
	//nolint:gosec // G306: Test file permissions are acceptable
	_ = os.WriteFile(path, []byte("path: "+dir+"\n"), 0644)
	configPath = path

	names, directive := scriptNameCompletion(&cobra.Command{}, nil, "")
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("Unexpected directive %v", directive)
	}
	if diff := cmp.Diff([]string{"blink", "relay"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	// only the first argument is completed
	names, _ = scriptNameCompletion(&cobra.Command{}, []string{"blink"}, "")
	if len(names) != 0 {
		t.Errorf("Expected no suggestions for a second argument, got %v", names)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"init": false, "debug": false, "push": false, "start": false, "list": false,
		"status": false, "stop": false, "logs": false, "history": false, "completion": false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Command %q is not registered", name)
		}
	}

	for _, flag := range []string{"debug", "config", "host", "username", "password"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("Persistent flag --%s is missing", flag)
		}
	}
}

func TestDebugCommandFlags(t *testing.T) {
	for _, flag := range []string{"path", "port", "autorun", "foreground", "ignore"} {
		if debugCmd.Flags().Lookup(flag) == nil {
			t.Errorf("debug flag --%s is missing", flag)
		}
	}
	if got := debugCmd.Flags().Lookup("port").DefValue; got != "80" {
		t.Errorf("Expected default port 80, got %s", got)
	}
}
