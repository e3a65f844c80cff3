package testsupport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/rogpeppe/go-internal/testscript"
)

// ScriptJWTSecret is the token secret exported to scripts.
const ScriptJWTSecret = "testscript-secret-testscript-secret"

var (
	buildOnce  sync.Once
	tareasPath string
	buildErr   error
)

// passthroughEnv lists the variables handed to commands started by CmdPTY.
var passthroughEnv = []string{
	"HOME",
	"PATH",
	"NO_COLOR",
	"TAREAS_DATA_DIR",
	"TAREAS_ADDR",
	"TAREAS_JWT_SECRET",
}

// BuildTareas builds the tareas binary once and returns its path.
func BuildTareas(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "tareas-bin-")
		if err != nil {
			buildErr = err
			return
		}

		tareasPath = filepath.Join(binDir, "tareas")
		cmd := exec.Command("go", "build", "-o", tareasPath, "./cmd/tareas")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build tareas: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}

	return tareasPath
}

// SetupScriptEnv configures common environment variables for testscript.
// Each script gets its own HOME and runs against $WORK as data directory.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("TAREAS", BuildTareas(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := EnsureHomeDirs(homeDir); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("NO_COLOR", "1")
	env.Setenv("TAREAS_JWT_SECRET", ScriptJWTSecret)
	return nil
}

// CmdEnvSet stores the trimmed contents of a file in an env var.
func CmdEnvSet(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("envset does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: envset VAR FILE")
	}

	value := strings.TrimSpace(ts.ReadFile(args[1]))
	ts.Setenv(args[0], value)
}

// CmdPTY runs a command with a pseudo-terminal as its stdin and stdout,
// typing the contents of INPUT. Output is written to the script's stdout
// with CRLF line endings normalized.
//
//	pty INPUT CMD [ARGS...]
func CmdPTY(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) < 2 {
		ts.Fatalf("usage: pty INPUT CMD [ARGS...]")
	}

	input := ts.ReadFile(args[0])
	cmd := exec.Command(args[1], args[2:]...)
	cmd.Dir = ts.MkAbs(".")
	for _, key := range passthroughEnv {
		if value := ts.Getenv(key); value != "" {
			cmd.Env = append(cmd.Env, key+"="+value)
		}
	}
	cmd.Env = append(cmd.Env, "TERM=dumb")

	terminal, err := pty.Start(cmd)
	if err != nil {
		ts.Fatalf("start %s: %v", args[1], err)
	}
	defer terminal.Close()

	if _, err := io.WriteString(terminal, input); err != nil {
		ts.Fatalf("write input: %v", err)
	}

	var output bytes.Buffer
	copied := make(chan struct{})
	go func() {
		// Reads fail with EIO once the child exits.
		_, _ = io.Copy(&output, terminal)
		close(copied)
	}()

	waitErr := cmd.Wait()
	select {
	case <-copied:
	case <-time.After(5 * time.Second):
		ts.Fatalf("timed out reading terminal output")
	}

	text := strings.ReplaceAll(output.String(), "\r\n", "\n")
	fmt.Fprint(ts.Stdout(), text)

	if neg && waitErr == nil {
		ts.Fatalf("unexpected command success")
	}
	if !neg && waitErr != nil {
		ts.Fatalf("%s failed: %v\n%s", args[1], waitErr, text)
	}
}

// CmdWaitHTTP polls URL until it answers 200 OK or ten seconds pass.
//
//	waithttp URL
func CmdWaitHTTP(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("waithttp does not support negation")
	}
	if len(args) != 1 {
		ts.Fatalf("usage: waithttp URL")
	}

	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := client.Get(args[0])
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		if time.Now().After(deadline) {
			ts.Fatalf("%s did not become ready: %v", args[0], err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
