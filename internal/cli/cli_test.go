// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/rpi-bootcfg/internal/config"
	"github.com/jeranaias/rpi-bootcfg/internal/reconcile"
	"github.com/jeranaias/rpi-bootcfg/internal/service"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
)

// =============================================================================
// HELPERS
// =============================================================================

type testEnv struct {
	dir        string
	configPath string
	bootConfig string
	storePath  string
	cpuinfo    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	e := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "rpi-bootcfg.toml"),
		bootConfig: filepath.Join(dir, "config.txt"),
		storePath:  filepath.Join(dir, "settings.toml"),
		cpuinfo:    filepath.Join(dir, "cpuinfo"),
	}

	content := fmt.Sprintf(`
[boot]
config_path = %q
variant = "extended"
arch_file = %q
require_rpi = false

[store]
backend = "toml"
path = %q

[mount]
method = "none"

[reboot]
enabled = false

[prompt]
mode = "policy"

[watch]
debounce_ms = 20

[hardware]
cpuinfo_path = %q
vcgencmd = %q
tvservice = %q
edid_path = %q
`, e.bootConfig, filepath.Join(dir, "arch"), e.storePath, e.cpuinfo,
		filepath.Join(dir, "no-vcgencmd"), filepath.Join(dir, "no-tvservice"), filepath.Join(dir, "edid.dat"))

	if err := os.WriteFile(e.configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return e
}

func (e *testEnv) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	argv := append([]string{"--config", e.configPath}, args...)
	code := Main(context.Background(), argv, Streams{
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	return code, stdout.String(), stderr.String()
}

func (e *testEnv) readBootConfig(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(e.bootConfig)
	if err != nil {
		t.Fatalf("read config.txt: %v", err)
	}
	return string(data)
}

func decodeData(t *testing.T, out string, into interface{}) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if !resp.Success {
		t.Fatalf("success = false in %s", out)
	}
	if err := json.Unmarshal(resp.Data, into); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		want    Command
		config  string
		json    bool
		debug   bool
		raw     []string
		wantErr bool
	}{
		{name: "no args", argv: nil, want: CmdHelp},
		{name: "service", argv: []string{"service"}, want: CmdService},
		{name: "daemon alias", argv: []string{"daemon"}, want: CmdService},
		{name: "apply with flags", argv: []string{"apply", "--yes", "--no-reboot"}, want: CmdApply, raw: []string{"--yes", "--no-reboot"}},
		{name: "settings set", argv: []string{"settings", "set", "arm_freq", "900"}, want: CmdSettings, raw: []string{"set", "arm_freq", "900"}},
		{name: "global flags first", argv: []string{"--config", "/x.toml", "--debug", "diff"}, want: CmdDiff, config: "/x.toml", debug: true},
		{name: "global flags after", argv: []string{"detect", "--json", "--config=/y.toml"}, want: CmdDetect, config: "/y.toml", json: true},
		{name: "version flag", argv: []string{"--version"}, want: CmdVersion},
		{name: "edid alias", argv: []string{"edid"}, want: CmdDumpEDID},
		{name: "unknown command", argv: []string{"frobnicate"}, wantErr: true},
		{name: "config without value", argv: []string{"apply", "--config"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			if tt.wantErr {
				var usage *UsageError
				if !errors.As(err, &usage) {
					t.Fatalf("Parse() error = %v, want UsageError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cmd != tt.want {
				t.Errorf("command = %s, want %s", cmd, tt.want)
			}
			if args.ConfigPath != tt.config {
				t.Errorf("ConfigPath = %q, want %q", args.ConfigPath, tt.config)
			}
			if args.JSON != tt.json {
				t.Errorf("JSON = %v, want %v", args.JSON, tt.json)
			}
			if args.Debug != tt.debug {
				t.Errorf("Debug = %v, want %v", args.Debug, tt.debug)
			}
			if tt.raw != nil && strings.Join(args.Raw, " ") != strings.Join(tt.raw, " ") {
				t.Errorf("Raw = %q, want %q", args.Raw, tt.raw)
			}
		})
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"set", "--force", "over_voltage", "-2", "--countdown", "5", "--json=false"}, "force", "json")

	if p.Subcommand() != "set" {
		t.Errorf("Subcommand() = %q", p.Subcommand())
	}
	if !p.BoolFlag("force") {
		t.Error("BoolFlag(force) = false")
	}
	if p.BoolFlag("json") || !p.HasFlag("json") {
		t.Error("--json=false should be present and false")
	}
	if p.Positional(1) != "over_voltage" || p.Positional(2) != "-2" {
		t.Errorf("positional = %q %q, want over_voltage -2", p.Positional(1), p.Positional(2))
	}
	if n, err := p.FlagInt("countdown"); err != nil || n != 5 {
		t.Errorf("FlagInt(countdown) = %d, %v", n, err)
	}
	if p.PositionalCount() != 3 {
		t.Errorf("PositionalCount() = %d, want 3", p.PositionalCount())
	}
}

func TestArgParser_DoubleDash(t *testing.T) {
	p := NewArgParser([]string{"set", "hdmi_mode", "--", "--odd"})
	if p.Positional(2) != "--odd" {
		t.Errorf("Positional(2) = %q, want --odd", p.Positional(2))
	}
	if p.HasFlag("odd") {
		t.Error("flag parsed after --")
	}
}

func TestArgParser_BadInt(t *testing.T) {
	p := NewArgParser([]string{"--countdown", "soon"})
	_, err := p.FlagInt("countdown")
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Errorf("FlagInt() error = %v, want UsageError", err)
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		if b, err := ParseBoolString(s); err != nil || !b {
			t.Errorf("ParseBoolString(%q) = %v, %v", s, b, err)
		}
	}
	if _, err := ParseBoolString("maybe"); err == nil {
		t.Error("ParseBoolString(maybe) should fail")
	}
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{NewUsageError("bad"), ExitUsageError},
		{fmt.Errorf("%w: x", errConfig), ExitConfigError},
		{config.ValidateErrors{{Field: "a", Message: "b"}}, ExitConfigError},
		{fmt.Errorf("%w: arch x", service.ErrNotRPi), ExitPlatformError},
		{NewCommandError("settings", "set", fmt.Errorf("%w: disk", settings.ErrStore)), ExitStoreError},
		{NewCommandError("apply", "reconcile", fmt.Errorf("%w: x", reconcile.ErrRead)), ExitReadError},
		{NewCommandError("apply", "reconcile", fmt.Errorf("%w: x", reconcile.ErrWrite)), ExitWriteError},
		{errors.New("other"), ExitGeneralError},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// =============================================================================
// PROMPTS
// =============================================================================

func TestPromptChoice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"letter yes", "c\n", true},
		{"letter no", "f\n", false},
		{"full label", "Continue\n", true},
		{"retry after junk", "what\nF\n", false},
		{"no trailing newline", "c", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := PromptChoice(context.Background(), NewLineReader(strings.NewReader(tt.input)), &out, "Continue", "Fix")
			if err != nil {
				t.Fatalf("PromptChoice() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PromptChoice() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "Continue [c] / Fix [f]") {
				t.Errorf("prompt text = %q", out.String())
			}
		})
	}
}

func TestPromptChoice_SameInitial(t *testing.T) {
	var out bytes.Buffer
	got, err := PromptChoice(context.Background(), NewLineReader(strings.NewReader("y\n")), &out, "Disable", "Decline")
	if err != nil || !got {
		t.Fatalf("PromptChoice() = %v, %v", got, err)
	}
	if !strings.Contains(out.String(), "Disable [y] / Decline [n]") {
		t.Errorf("prompt text = %q", out.String())
	}
}

func TestPromptChoice_EOF(t *testing.T) {
	var out bytes.Buffer
	_, err := PromptChoice(context.Background(), NewLineReader(strings.NewReader("")), &out, "Enable", "Disable")
	if err == nil {
		t.Fatal("PromptChoice() on empty input should fail")
	}
}

func TestTerminalConfirmer_ShowsPromptAndFallsBack(t *testing.T) {
	var out bytes.Buffer
	c := &TerminalConfirmer{
		In:       strings.NewReader(""),
		Out:      &out,
		Fallback: reconcile.PolicyConfirmer{Default: true},
	}
	prompt := reconcile.Prompt{
		ID:       "test",
		Title:    "WARNING",
		Lines:    []string{"first line", "second line"},
		YesLabel: "Enable",
		NoLabel:  "Disable",
	}

	got, err := c.Confirm(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if !got {
		t.Error("Confirm() should use the fallback answer on EOF")
	}
	for _, want := range []string{"WARNING", "first line", "second line", "Enable [e] / Disable [d]"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestTerminalConfirmer_ReadsAnswer(t *testing.T) {
	var out bytes.Buffer
	c := &TerminalConfirmer{In: strings.NewReader("e\nd\n"), Out: &out}
	p := reconcile.Prompt{ID: "x", Title: "T", YesLabel: "Enable", NoLabel: "Disable"}

	first, err := c.Confirm(context.Background(), p)
	if err != nil || !first {
		t.Fatalf("first Confirm() = %v, %v", first, err)
	}
	second, err := c.Confirm(context.Background(), p)
	if err != nil || second {
		t.Fatalf("second Confirm() = %v, %v", second, err)
	}
}

func TestTerminalConfirmer_AnswersAfterCancelledPrompt(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	c := &TerminalConfirmer{In: pr, Out: &out, Fallback: reconcile.PolicyConfirmer{Default: true}}
	p := reconcile.Prompt{ID: "x", Title: "T", YesLabel: "Enable", NoLabel: "Disable"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := c.Confirm(ctx, p)
	if err != nil || !got {
		t.Fatalf("cancelled Confirm() = %v, %v, want fallback true", got, err)
	}

	go func() { _, _ = io.WriteString(pw, "d\n") }()

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err = c.Confirm(ctx, p)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if got {
		t.Error("Confirm() should read the answer typed after the cancelled prompt")
	}
}

func TestLineReader_KeepsLineForNextCaller(t *testing.T) {
	pr, pw := io.Pipe()
	lr := NewLineReader(pr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := lr.ReadLine(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("ReadLine() error = %v, want context.Canceled", err)
	}

	go func() {
		_, _ = io.WriteString(pw, "first\n")
		pw.Close()
	}()

	line, err := lr.ReadLine(context.Background())
	if err != nil || line != "first\n" {
		t.Fatalf("ReadLine() = %q, %v", line, err)
	}
	if _, err := lr.ReadLine(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("ReadLine() after close error = %v, want io.EOF", err)
	}
	if _, err := lr.ReadLine(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("repeated ReadLine() error = %v, want io.EOF", err)
	}
}

func TestRenderSeparator(t *testing.T) {
	if got := strings.Count(RenderSeparator(12), "="); got != 12 {
		t.Errorf("explicit width: %d '=', want 12", got)
	}
	got := strings.Count(RenderSeparator(), "=")
	if got < MinTerminalWidth || got > 60 {
		t.Errorf("default width = %d, want between %d and 60", got, MinTerminalWidth)
	}
}

func TestNewConfirmer(t *testing.T) {
	prompt := config.PromptConfig{
		Mode:          config.PromptTTY,
		Overvolt:      config.OvervoltContinue,
		MaxUSBCurrent: config.USBDisable,
	}
	ctx := context.Background()

	forced := NewConfirmer(ConfirmerOptions{Prompt: prompt, Force: true, Answer: false, Interactive: true})
	if ok, _ := forced.Confirm(ctx, reconcile.Prompt{ID: reconcile.GateOvervolt}); ok {
		t.Error("--no must override the policy")
	}

	policy := NewConfirmer(ConfirmerOptions{Prompt: prompt})
	if ok, _ := policy.Confirm(ctx, reconcile.Prompt{ID: reconcile.GateOvervolt}); !ok {
		t.Error("overvolt policy continue should answer yes")
	}
	if ok, _ := policy.Confirm(ctx, reconcile.Prompt{ID: reconcile.GateMaxUSBCurrent}); ok {
		t.Error("usb policy disable should answer no")
	}

	if _, ok := NewConfirmer(ConfirmerOptions{Prompt: prompt, Interactive: true}).(*TerminalConfirmer); !ok {
		t.Error("tty mode with a terminal should prompt")
	}
	prompt.Mode = config.PromptPolicy
	if _, ok := NewConfirmer(ConfirmerOptions{Prompt: prompt, Interactive: true}).(*TerminalConfirmer); ok {
		t.Error("policy mode must never prompt")
	}
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestMain_SetPresetThenApply(t *testing.T) {
	e := newTestEnv(t)

	if code, _, stderr := e.run(t, "settings", "set", "overclock_preset", "Medium"); code != ExitSuccess {
		t.Fatalf("settings set exit = %d, stderr = %s", code, stderr)
	}

	code, stdout, stderr := e.run(t, "apply", "--no-reboot")
	if code != ExitSuccess {
		t.Fatalf("apply exit = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "arm_freq") {
		t.Errorf("apply output missing arm_freq:\n%s", stdout)
	}

	text := e.readBootConfig(t)
	for _, want := range []string{"  arm_freq=900\n", "  core_freq=333\n", "  sdram_freq=450\n", "  over_voltage=2\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("config.txt missing %q:\n%s", want, text)
		}
	}

	code, stdout, _ = e.run(t, "apply", "--no-reboot")
	if code != ExitSuccess {
		t.Fatalf("second apply exit = %d", code)
	}
	if !strings.Contains(stdout, "No changes.") {
		t.Errorf("second apply should be a no-op:\n%s", stdout)
	}
	if e.readBootConfig(t) != text {
		t.Error("second apply changed config.txt")
	}
}

func TestMain_ApplyJSON(t *testing.T) {
	e := newTestEnv(t)
	if err := os.WriteFile(e.bootConfig, []byte("gpu_mem=64\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if code, _, _ := e.run(t, "settings", "set", "gpu_mem", "128"); code != ExitSuccess {
		t.Fatal("settings set failed")
	}

	code, stdout, _ := e.run(t, "--json", "apply")
	if code != ExitSuccess {
		t.Fatalf("apply exit = %d", code)
	}
	var data ApplyData
	decodeData(t, stdout, &data)
	if !data.Committed || !data.RebootNeeded {
		t.Errorf("data = %+v, want committed and reboot needed", data)
	}
	if data.RunID == "" {
		t.Error("RunID is empty")
	}
	if !strings.HasPrefix(e.readBootConfig(t), "  gpu_mem=128\n") {
		t.Errorf("config.txt = %q", e.readBootConfig(t))
	}
}

func TestMain_YesAndNoConflict(t *testing.T) {
	e := newTestEnv(t)
	if code, _, _ := e.run(t, "apply", "--yes", "--no"); code != ExitUsageError {
		t.Errorf("exit = %d, want %d", code, ExitUsageError)
	}
}

func TestMain_OvervoltGateFromFlags(t *testing.T) {
	e := newTestEnv(t)
	for _, kv := range [][2]string{{"force_turbo", "1"}, {"over_voltage", "6"}} {
		if code, _, _ := e.run(t, "settings", "set", kv[0], kv[1]); code != ExitSuccess {
			t.Fatalf("settings set %s failed", kv[0])
		}
	}

	// Default policy "fix" disables force_turbo.
	code, stdout, _ := e.run(t, "--json", "diff")
	if code != ExitSuccess {
		t.Fatalf("diff exit = %d", code)
	}
	var fixed DiffData
	decodeData(t, stdout, &fixed)
	if actionFor(fixed.Actions, "force_turbo").New != "0" {
		t.Errorf("policy answer: force_turbo action = %+v, want 0", actionFor(fixed.Actions, "force_turbo"))
	}

	code, stdout, _ = e.run(t, "--json", "diff", "--yes")
	if code != ExitSuccess {
		t.Fatalf("diff --yes exit = %d", code)
	}
	var kept DiffData
	decodeData(t, stdout, &kept)
	if actionFor(kept.Actions, "force_turbo").New != "1" {
		t.Errorf("--yes: force_turbo action = %+v, want 1", actionFor(kept.Actions, "force_turbo"))
	}

	if _, err := os.Stat(e.bootConfig); !errors.Is(err, os.ErrNotExist) {
		t.Error("diff must not create config.txt")
	}
}

func actionFor(actions []reconcile.Action, prop string) reconcile.Action {
	for _, a := range actions {
		if string(a.Prop) == prop {
			return a
		}
	}
	return reconcile.Action{}
}

func TestMain_DiffText(t *testing.T) {
	e := newTestEnv(t)
	if err := os.WriteFile(e.bootConfig, []byte("# boot\narm_freq=700\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if code, _, _ := e.run(t, "settings", "set", "arm_freq", "1000"); code != ExitSuccess {
		t.Fatal("settings set failed")
	}

	code, stdout, _ := e.run(t, "diff", "--text")
	if code != ExitSuccess {
		t.Fatalf("diff exit = %d", code)
	}
	if !strings.Contains(stdout, "700 -> 1000") {
		t.Errorf("diff output missing change:\n%s", stdout)
	}
	if !strings.Contains(stdout, "# boot\n  arm_freq=1000\n") {
		t.Errorf("diff --text missing resulting file:\n%s", stdout)
	}
	if e.readBootConfig(t) != "# boot\narm_freq=700\n" {
		t.Error("diff modified config.txt")
	}
}

func TestMain_Init(t *testing.T) {
	e := newTestEnv(t)
	if err := os.WriteFile(e.bootConfig, []byte("arm_freq=950\ngpu_mem=256\n#sdram_freq=500\n"), 0644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := e.run(t, "init")
	if code != ExitSuccess {
		t.Fatalf("init exit = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "arm_freq") {
		t.Errorf("init output missing arm_freq:\n%s", stdout)
	}

	for key, want := range map[string]string{"arm_freq": "950", "gpu_mem": "256", "gpu_mem_512": "256", "sdram_freq": ""} {
		_, got, _ := e.run(t, "settings", "get", key)
		if strings.TrimSpace(got) != want {
			t.Errorf("settings get %s = %q, want %q", key, strings.TrimSpace(got), want)
		}
	}

	if e.readBootConfig(t) != "arm_freq=950\ngpu_mem=256\n#sdram_freq=500\n" {
		t.Error("init modified config.txt")
	}
}

func TestMain_InitMissingFile(t *testing.T) {
	e := newTestEnv(t)
	code, stdout, _ := e.run(t, "init")
	if code != ExitSuccess {
		t.Fatalf("init exit = %d", code)
	}
	if !strings.Contains(stdout, "not found") {
		t.Errorf("output = %q", stdout)
	}
}

func TestMain_SettingsValidation(t *testing.T) {
	e := newTestEnv(t)

	if code, _, _ := e.run(t, "settings", "set", "arm_frq", "900"); code != ExitUsageError {
		t.Errorf("unknown key exit = %d, want %d", code, ExitUsageError)
	}
	if code, _, _ := e.run(t, "settings", "set", "overclock_preset", "Ludicrous"); code != ExitUsageError {
		t.Errorf("unknown preset exit = %d, want %d", code, ExitUsageError)
	}
	if code, _, _ := e.run(t, "settings", "set", "--force", "my_key", "1"); code != ExitSuccess {
		t.Errorf("--force exit = %d, want success", code)
	}
	if code, _, _ := e.run(t, "settings", "set", "over_voltage", "-2"); code != ExitSuccess {
		t.Errorf("negative value exit = %d, want success", code)
	}
	for _, bad := range []string{"4 x", "1.5"} {
		if code, _, _ := e.run(t, "settings", "set", "hdmi_mode", bad); code != ExitUsageError {
			t.Errorf("value %q exit = %d, want %d", bad, code, ExitUsageError)
		}
	}
	if code, _, _ := e.run(t, "settings", "set", "disable_splash", "true"); code != ExitSuccess {
		t.Errorf("boolean value exit = %d, want success", code)
	}
	if code, _, _ := e.run(t, "settings", "get"); code != ExitUsageError {
		t.Errorf("get without key exit = %d, want %d", code, ExitUsageError)
	}
	if code, _, _ := e.run(t, "settings", "bogus"); code != ExitUsageError {
		t.Errorf("bogus subcommand exit = %d, want %d", code, ExitUsageError)
	}
}

func TestMain_SettingsListAndUnset(t *testing.T) {
	e := newTestEnv(t)
	e.run(t, "settings", "set", "gpu_mem", "128")
	e.run(t, "settings", "set", "--force", "legacy_thing", "x")

	code, stdout, _ := e.run(t, "--json", "settings", "list")
	if code != ExitSuccess {
		t.Fatalf("list exit = %d", code)
	}
	var entries []SettingEntry
	decodeData(t, stdout, &entries)

	byName := map[string]SettingEntry{}
	for _, en := range entries {
		byName[en.Name] = en
	}
	if en := byName["gpu_mem"]; en.Value != "128" || en.Kind != "int" || en.Group != groupOther {
		t.Errorf("gpu_mem entry = %+v", en)
	}
	if en := byName["arm_freq"]; en.Kind != "absent" || en.Group != groupOverclock {
		t.Errorf("arm_freq entry = %+v", en)
	}
	if en := byName["legacy_thing"]; en.Group != groupUnknown {
		t.Errorf("legacy_thing entry = %+v", en)
	}
	if _, ok := byName["hw_type"]; !ok {
		t.Error("extended list should include hardware settings")
	}

	if code, _, _ := e.run(t, "settings", "unset", "gpu_mem"); code != ExitSuccess {
		t.Fatal("unset failed")
	}
	_, got, _ := e.run(t, "settings", "get", "gpu_mem")
	if strings.TrimSpace(got) != "" {
		t.Errorf("gpu_mem after unset = %q", got)
	}
}

func TestMain_Presets(t *testing.T) {
	e := newTestEnv(t)
	code, stdout, _ := e.run(t, "--json", "settings", "presets")
	if code != ExitSuccess {
		t.Fatalf("presets exit = %d", code)
	}
	var entries []PresetEntry
	decodeData(t, stdout, &entries)

	if len(entries) != 5 || entries[0].Name != "Disabled" {
		t.Fatalf("presets = %+v", entries)
	}
	if entries[0].Values["arm_freq"] != "" {
		t.Errorf("Disabled arm_freq = %q, want empty", entries[0].Values["arm_freq"])
	}
	if entries[4].Name != "Turbo" || entries[4].Values["arm_freq"] != "1000" {
		t.Errorf("Turbo = %+v", entries[4])
	}
}

func TestMain_DetectJSON(t *testing.T) {
	e := newTestEnv(t)
	if err := os.WriteFile(e.cpuinfo, []byte("Hardware\t: BCM2835\nRevision\t: c03111\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(e.dir, "arch"), []byte("Generic.x86_64\n"), 0644); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := e.run(t, "--json", "detect")
	if code != ExitSuccess {
		t.Fatalf("detect exit = %d", code)
	}
	var data DetectData
	decodeData(t, stdout, &data)
	if data.Arch != "Generic.x86_64" || data.IsRPi {
		t.Errorf("arch = %q is_rpi = %v", data.Arch, data.IsRPi)
	}
	if data.Hardware.Type != 0x11 || data.Hardware.RAMMB != 4096 {
		t.Errorf("hardware = %+v", data.Hardware)
	}
}

func TestMain_DumpEDIDFailure(t *testing.T) {
	e := newTestEnv(t)
	code, _, stderr := e.run(t, "dump-edid")
	if code != ExitGeneralError {
		t.Errorf("exit = %d, want %d", code, ExitGeneralError)
	}
	if !strings.Contains(stderr, "dump-edid") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestMain_InvalidConfig(t *testing.T) {
	e := newTestEnv(t)
	if err := os.WriteFile(e.configPath, []byte("[boot]\nvariant = \"deluxe\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	code, _, stderr := e.run(t, "diff")
	if code != ExitConfigError {
		t.Errorf("exit = %d, want %d (stderr %s)", code, ExitConfigError, stderr)
	}
}

func TestMain_UnknownCommand(t *testing.T) {
	e := newTestEnv(t)
	code, _, stderr := e.run(t, "frobnicate")
	if code != ExitUsageError {
		t.Errorf("exit = %d, want %d", code, ExitUsageError)
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Errorf("usage not printed: %q", stderr)
	}
}

func TestMain_VersionJSON(t *testing.T) {
	e := newTestEnv(t)
	code, stdout, _ := e.run(t, "--json", "version")
	if code != ExitSuccess {
		t.Fatalf("version exit = %d", code)
	}
	var data VersionData
	decodeData(t, stdout, &data)
	if data.Version != Version {
		t.Errorf("version = %q, want %q", data.Version, Version)
	}
}

func TestMain_ErrorJSON(t *testing.T) {
	e := newTestEnv(t)
	if err := os.Mkdir(e.bootConfig, 0755); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ := e.run(t, "--json", "diff")
	if code != ExitReadError {
		t.Errorf("exit = %d, want %d", code, ExitReadError)
	}
	var resp JSONResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Success || resp.Error == nil || resp.Command != "diff" {
		t.Errorf("response = %+v", resp)
	}
}

// =============================================================================
// SERVICE
// =============================================================================

func TestMain_ServiceReconcilesOnStoreChange(t *testing.T) {
	e := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var stdout, stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- Main(ctx, []string{"--config", e.configPath, "service"}, Streams{
			Stdin:  strings.NewReader(""),
			Stdout: &stdout,
			Stderr: &stderr,
		})
	}()

	// The watcher may not be running yet; keep changing the value until one
	// change is reconciled.
	store, err := settings.OpenTOMLStore(e.storePath)
	if err != nil {
		t.Fatal(err)
	}
	applied := false
	for attempt := 0; attempt < 20 && !applied; attempt++ {
		value := strconv.Itoa(64 + attempt)
		if err := store.Set("gpu_mem", value); err != nil {
			t.Fatal(err)
		}
		deadline := time.Now().Add(300 * time.Millisecond)
		for time.Now().Before(deadline) {
			if data, err := os.ReadFile(e.bootConfig); err == nil && strings.Contains(string(data), "  gpu_mem="+value+"\n") {
				applied = true
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	if !applied {
		t.Fatal("service never reconciled config.txt")
	}

	cancel()
	select {
	case code := <-done:
		if code != ExitSuccess {
			t.Errorf("service exit = %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestMain_ServiceRefusesNonRPi(t *testing.T) {
	e := newTestEnv(t)
	if err := os.WriteFile(filepath.Join(e.dir, "arch"), []byte("Generic.x86_64\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RPI_BOOTCFG_REQUIRE_RPI", "1")

	code, _, _ := e.run(t, "service")
	if code != ExitPlatformError {
		t.Errorf("exit = %d, want %d", code, ExitPlatformError)
	}
}
