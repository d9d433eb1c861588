package toolexec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	apperr "github.com/nicholaspatten/svgit/pkg/errors"
)

// helperCommand re-executes the test binary as a fake tool.
func helperCommand(mode string, args ...string) Command {
	return Command{
		Name: "helper",
		Path: os.Args[0],
		Args: append([]string{"-test.run=TestHelperProcess", "--", mode}, args...),
		Env:  append(os.Environ(), "GO_WANT_HELPER_PROCESS=1"),
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}
	mode, rest := args[1], args[2:]
	switch mode {
	case "echo":
		fmt.Fprint(os.Stdout, strings.Join(rest, " "))
		os.Exit(0)
	case "fail":
		fmt.Fprint(os.Stderr, "bad input file")
		os.Exit(3)
	case "fail-stdout":
		fmt.Fprint(os.Stdout, "only stdout")
		os.Exit(1)
	case "hang":
		time.Sleep(time.Hour)
	case "stubborn":
		signal.Ignore(syscall.SIGTERM)
		time.Sleep(time.Hour)
	case "spawn-stubborn":
		signal.Ignore(syscall.SIGTERM)
		child := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--", "stubborn")
		if err := child.Start(); err != nil {
			os.Exit(4)
		}
		fmt.Fprintln(os.Stdout, child.Process.Pid)
		time.Sleep(time.Hour)
	}
	os.Exit(0)
}

func TestRunSuccess(t *testing.T) {
	res, err := (&Exec{}).Run(context.Background(), helperCommand("echo", "a", "b"), Budget{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.Stdout != "a b" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "a b")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	tests := []struct {
		mode string
		code int
		diag string
	}{
		{"fail", 3, "bad input file"},
		{"fail-stdout", 1, "only stdout"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			res, err := (&Exec{}).Run(context.Background(), helperCommand(tt.mode), Budget{Timeout: 10 * time.Second})
			if err == nil {
				t.Fatal("expected error")
			}
			if IsTimeout(err) {
				t.Fatalf("unexpected timeout: %v", err)
			}
			if res.ExitCode != tt.code {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tt.code)
			}
			if got := Diagnostic(err); got != tt.diag {
				t.Errorf("Diagnostic() = %q, want %q", got, tt.diag)
			}
		})
	}
}

func TestRunTimeout(t *testing.T) {
	start := time.Now()
	_, err := (&Exec{Grace: 100 * time.Millisecond}).Run(context.Background(), helperCommand("hang"), Budget{Timeout: 300 * time.Millisecond})
	if !IsTimeout(err) {
		t.Fatalf("err = %v, want TimeoutError", err)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("Run took %s", d)
	}
}

func TestRunSafetyNetKillsStubbornProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no SIGTERM on windows")
	}
	start := time.Now()
	_, err := (&Exec{Grace: 200 * time.Millisecond}).Run(context.Background(), helperCommand("stubborn"),
		Budget{Timeout: time.Minute, KillAfter: 300 * time.Millisecond})
	if !IsTimeout(err) {
		t.Fatalf("err = %v, want TimeoutError", err)
	}
	if d := time.Since(start); d > 10*time.Second {
		t.Errorf("stubborn process survived %s", d)
	}
}

func TestRunSafetyNetKillsForkedChildren(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("reads /proc")
	}
	res, err := (&Exec{Grace: 200 * time.Millisecond}).Run(context.Background(), helperCommand("spawn-stubborn"),
		Budget{Timeout: time.Minute, KillAfter: 500 * time.Millisecond})
	if !IsTimeout(err) {
		t.Fatalf("err = %v, want TimeoutError", err)
	}
	pid, perr := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if perr != nil {
		t.Fatalf("child pid %q: %v", res.Stdout, perr)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !processGone(pid) {
		if time.Now().After(deadline) {
			if p, ferr := os.FindProcess(pid); ferr == nil {
				p.Kill()
			}
			t.Fatalf("forked child %d still running after the budget", pid)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// processGone reports whether pid has exited. A zombie counts as gone
// since it may wait on a reaper that never runs in containers.
func processGone(pid int) bool {
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return true
	}
	s := string(stat)
	i := strings.LastIndexByte(s, ')')
	return i >= 0 && strings.HasPrefix(strings.TrimSpace(s[i+1:]), "Z")
}

func TestRunMissingExecutable(t *testing.T) {
	res, err := (&Exec{}).Run(context.Background(), Command{Name: "nope", Path: "svgit-definitely-missing-tool"}, Budget{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
}

func TestClassify(t *testing.T) {
	f := Failure{Code: apperr.ErrCodeTraceFailed, Message: "VTracer failed", Timeout: "VTracer timed out"}

	tests := []struct {
		name string
		err  error
		code apperr.Code
		msg  string
	}{
		{"timeout", &TimeoutError{Tool: "vtracer", After: time.Second}, apperr.ErrCodeTimeout, "VTracer timed out"},
		{"exit", &ExitError{Tool: "vtracer", ExitCode: 1, Stderr: "boom"}, apperr.ErrCodeTraceFailed, "VTracer failed"},
		{"not found", &ExitError{Tool: "vtracer", ExitCode: -1, Err: fmt.Errorf("start: %w", syscall.ENOENT)}, apperr.ErrCodeToolNotFound, "VTracer failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, f)
			if apperr.GetCode(got) != tt.code {
				t.Errorf("code = %v, want %v", apperr.GetCode(got), tt.code)
			}
			if apperr.UserMessage(got) != tt.msg {
				t.Errorf("message = %q, want %q", apperr.UserMessage(got), tt.msg)
			}
		})
	}

	if got := apperr.Details(Classify(&ExitError{Tool: "x", ExitCode: 1, Stderr: "boom\n"}, f)); got != "boom" {
		t.Errorf("details = %q, want boom", got)
	}
	if Classify(nil, f) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{max: 4}
	n, err := b.Write([]byte("abcdef"))
	if err != nil || n != 6 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	b.Write([]byte("gh"))
	if b.String() != "abcd" {
		t.Errorf("String() = %q, want abcd", b.String())
	}
}

type fakeRunner struct {
	out map[string]*Result
}

func (f *fakeRunner) Run(_ context.Context, c Command, _ Budget) (*Result, error) {
	if r, ok := f.out[c.Name]; ok {
		return r, nil
	}
	return &Result{ExitCode: 1}, &ExitError{Tool: c.Name, ExitCode: 1, Stderr: "unknown flag"}
}

func TestProbe(t *testing.T) {
	r := &fakeRunner{out: map[string]*Result{
		"self": {Stdout: "Self 1.2.3\nmore text\n"},
	}}
	tools := []Tool{
		{Name: "self", Path: os.Args[0], VersionFlag: "--version"},
		{Name: "missing", Path: "svgit-definitely-missing-tool", VersionFlag: "--version"},
	}
	rep := Probe(context.Background(), r, tools)

	if rep.Platform != runtime.GOOS || rep.GoVersion == "" {
		t.Errorf("host info = %+v", rep)
	}
	if len(rep.Tools) != 2 {
		t.Fatalf("Tools = %d, want 2", len(rep.Tools))
	}
	if s := rep.Tools[0]; !s.Found || s.Version != "Self 1.2.3" {
		t.Errorf("self status = %+v", s)
	}
	if s := rep.Tools[1]; s.Found || s.Error == "" {
		t.Errorf("missing status = %+v", s)
	}
	if rep.Ready() {
		t.Error("Ready() = true with a missing tool")
	}
}

func TestReadyIgnoresOptionalTools(t *testing.T) {
	rep := &Report{Tools: []ToolStatus{
		{Name: "magick", Found: true},
		{Name: "convert", Optional: true},
	}}
	if !rep.Ready() {
		t.Error("Ready() = false with only an optional tool missing")
	}
}
