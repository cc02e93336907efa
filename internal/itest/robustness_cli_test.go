//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 60 * time.Second

type robustCase struct {
	name            string
	args            func(t *testing.T, repoRoot string) []string
	env             map[string]string
	wantContains    []string
	wantNotContains []string
}

type cliRunResult struct {
	exitCode int
	output   string
}

func TestRobustness_ArgsValidation(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "no args",
			args: staticArgs(),
			wantContains: []string{
				"required flag(s)",
			},
		},
		{
			name: "positional arg",
			args: staticArgs("input.mp4"),
			wantContains: []string{
				`unknown command "input.mp4"`,
			},
		},
		{
			name: "unknown flag",
			args: staticArgs("--wat"),
			wantContains: []string{
				"unknown flag: --wat",
			},
		},
		{
			name: "steps non int",
			args: withInputs("--inference-steps", "nope"),
			wantContains: []string{
				`invalid argument "nope" for "--inference-steps"`,
			},
		},
		{
			name: "steps zero",
			args: withInputs("--inference-steps", "0"),
			wantContains: []string{
				"config: inference steps must be > 0",
			},
		},
		{
			name: "seed below random",
			args: withInputs("--seed", "-5"),
			wantContains: []string{
				"config: seed must be >= -1",
			},
		},
		{
			name: "bad segment duration",
			args: withInputs("--segment-duration", "5"),
			wantContains: []string{
				`invalid argument "5" for "--segment-duration"`,
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func TestRobustness_InvalidInputMedia(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "missing video",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				args := withInputs()(t, "")
				return replaceFlag(args, "--video-path", filepath.Join(t.TempDir(), "does-not-exist.mp4"))
			},
			wantContains: []string{
				"config: stat video:",
			},
		},
		{
			name: "video is directory",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				args := withInputs()(t, "")
				return replaceFlag(args, "--video-path", t.TempDir())
			},
			wantContains: []string{
				"is a directory",
			},
		},
		{
			name: "video is not media",
			args: withInputs(),
			wantContains: []string{
				"ffprobe duration:",
			},
		},
		{
			name: "unsupported cross attention dim",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				args := withInputs()(t, "")
				unet := filepath.Join(t.TempDir(), "unet.yaml")
				if err := os.WriteFile(unet, []byte("model:\n  cross_attention_dim: 512\n"), 0o644); err != nil {
					t.Fatalf("write unet config: %v", err)
				}
				return append(args, "--unet-config-path", unet)
			},
			wantContains: []string{
				"cross_attention_dim must be 768 or 384",
			},
			wantNotContains: []string{
				"ffprobe duration:",
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

// withInputs builds a full flag set over placeholder files, so validation
// passes and the run fails at the first media step.
func withInputs(extra ...string) func(t *testing.T, _ string) []string {
	return func(t *testing.T, _ string) []string {
		t.Helper()
		dir := t.TempDir()
		files := map[string]string{
			"video.mp4":               "not media",
			"voice.wav":               "not media",
			"ckpt/latentsync_unet.pt": "ckpt",
			"ckpt/whisper/tiny.pt":    "whisper",
			"configs/unet.yaml":       "model:\n  cross_attention_dim: 384\n",
		}
		for name, body := range files {
			p := filepath.Join(dir, name)
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
				t.Fatalf("write %s: %v", name, err)
			}
		}
		cfg := filepath.Join(dir, "lipsync.toml")
		body := fmt.Sprintf("[latentsync]\ndir = %q\ncheckpoints_dir = \"ckpt\"\n[workspace]\ncache_dir = %q\n", dir, filepath.Join(dir, "cache"))
		if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		args := []string{
			"--config", cfg,
			"--inference-ckpt-path", filepath.Join(dir, "ckpt", "latentsync_unet.pt"),
			"--video-path", filepath.Join(dir, "video.mp4"),
			"--audio-path", filepath.Join(dir, "voice.wav"),
			"--video-out-path", filepath.Join(dir, "out", "final.mp4"),
		}
		return append(args, extra...)
	}
}

func replaceFlag(args []string, flag, value string) []string {
	out := append([]string(nil), args...)
	for i := range out {
		if out[i] == flag && i+1 < len(out) {
			out[i+1] = value
		}
	}
	return out
}

func runRobustCases(t *testing.T, repoRoot string, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, repoRoot, tc.args(t, repoRoot), tc.env)
			if res.exitCode == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", res.output)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(res.output, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, res.output)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(res.output, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, res.output)
				}
			}
		})
	}
}

func runCLI(t *testing.T, repoRoot string, args []string, env map[string]string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmdArgs := append([]string{"run", "./cmd/lipsync"}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmd.Dir = repoRoot
	cmd.Env = mergeEnv(
		os.Environ(),
		map[string]string{
			"NO_COLOR": "1",
			"TERM":     "dumb",
		},
		env,
	)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: go %s", cliTimeout, strings.Join(cmdArgs, " "))
	}

	res := cliRunResult{output: string(out)}
	if err == nil {
		res.exitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}

	t.Fatalf("run command: %v\noutput:\n%s", err, string(out))
	return cliRunResult{}
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}

	for _, set := range overrides {
		for k, v := range set {
			env[k] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

func mustRepoRoot(t *testing.T) string {
	t.Helper()

	repoRoot, err := findRepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	return repoRoot
}

func staticArgs(args ...string) func(t *testing.T, _ string) []string {
	clone := append([]string(nil), args...)
	return func(t *testing.T, _ string) []string {
		t.Helper()
		return append([]string(nil), clone...)
	}
}
