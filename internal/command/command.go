// ABOUTME: Text edit scripts driving project commands
// ABOUTME: One command per line or per ';' segment; '#' starts a comment
package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/resonate-edit/pkg/effect"
	"github.com/Resonate-Protocol/resonate-edit/pkg/project"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
)

// Interpreter runs scripts against one project
type Interpreter struct {
	p   *project.Project
	out io.Writer
}

// New creates an interpreter; informational commands print to out
func New(p *project.Project, out io.Writer) *Interpreter {
	if out == nil {
		out = io.Discard
	}
	return &Interpreter{p: p, out: out}
}

type handler struct {
	args  string // usage of the arguments
	min   int
	max   int // -1 for no limit
	run   func(in *Interpreter, ctx context.Context, args []string) error
	brief string
}

// simple wraps a project command taking no arguments
func simple(brief string, cmd func(*project.Project) error) handler {
	return handler{brief: brief, run: func(in *Interpreter, _ context.Context, _ []string) error {
		return cmd(in.p)
	}}
}

var commands map[string]handler

func init() {
	commands = map[string]handler{
		"import": {args: "FILE...", min: 1, max: -1, brief: "import audio or MIDI files as new tracks",
			run: func(in *Interpreter, ctx context.Context, args []string) error {
				return in.p.ImportFiles(ctx, args...)
			}},
		"select": {args: "all|none|INDEX...", min: 1, max: -1, brief: "select tracks", run: (*Interpreter).selectTracks},
		"range":  {args: "T0 [T1]", min: 1, max: 2, brief: "set the time selection in seconds", run: (*Interpreter).setRange},

		"copy":         simple("copy the selection to the clipboard", (*project.Project).Copy),
		"cut":          simple("cut the selection to the clipboard", (*project.Project).Cut),
		"paste":        simple("paste the clipboard over the selection", (*project.Project).Paste),
		"delete":       simple("delete the selection", (*project.Project).Delete),
		"split-cut":    simple("cut the selection leaving a gap", (*project.Project).SplitCut),
		"split-delete": simple("delete the selection leaving a gap", (*project.Project).SplitDelete),
		"silence":      simple("silence the selection", (*project.Project).Silence),
		"trim":         simple("hide audio outside the selection", (*project.Project).Trim),
		"split":        simple("split clips at the selection edges", (*project.Project).Split),
		"split-new":    simple("move the selection to new tracks", (*project.Project).SplitNew),
		"join":         simple("join clips in the selection", (*project.Project).Join),
		"disjoin":      simple("split clips at silences in the selection", (*project.Project).Disjoin),
		"duplicate":    simple("copy the selection to new tracks", (*project.Project).Duplicate),
		"undo":         simple("undo the last command", (*project.Project).Undo),
		"redo":         simple("redo the next command", (*project.Project).Redo),

		"effect": {args: "NAME[:ARG]", min: 1, max: 1, brief: "apply amplify:DB, fadein, fadeout, invert or tone:HZ",
			run: func(in *Interpreter, _ context.Context, args []string) error {
				e, err := effect.Parse(args[0])
				if err != nil {
					return err
				}
				return in.p.ApplyEffect(e)
			}},
		"expand-cut-line": {args: "T", min: 1, max: 1, brief: "restore the audio of a cut line",
			run: func(in *Interpreter, _ context.Context, args []string) error {
				t, err := parseTime(args[0])
				if err != nil {
					return err
				}
				return in.p.ExpandCutLine(t)
			}},
		"remove-cut-line": {args: "T", min: 1, max: 1, brief: "discard the audio of a cut line",
			run: func(in *Interpreter, _ context.Context, args []string) error {
				t, err := parseTime(args[0])
				if err != nil {
					return err
				}
				return in.p.RemoveCutLine(t)
			}},
		"new-track": {args: "[CHANNELS]", min: 0, max: 1, brief: "add an empty wave track", run: (*Interpreter).newTrack},
		"clip-trim": {args: "INDEX CLIP LEFT RIGHT", min: 4, max: 4, brief: "set the hidden start and end of a clip", run: (*Interpreter).clipTrim},
		"tone":      {args: "SECONDS [HZ] [LEVEL]", min: 1, max: 3, brief: "generate a sine tone on a new track", run: (*Interpreter).tone},
		"label":     {args: "T0 T1 TEXT...", min: 3, max: -1, brief: "add a label to the selected label track", run: (*Interpreter).addLabel},
		"gain":      {args: "INDEX DB", min: 2, max: 2, brief: "set a wave track's gain", run: (*Interpreter).setGain},
		"pan":       {args: "INDEX PAN", min: 2, max: 2, brief: "set a wave track's pan in [-1, 1]", run: (*Interpreter).setPan},
		"mute":      {args: "INDEX on|off", min: 2, max: 2, brief: "mute a wave track", run: (*Interpreter).setMute},
		"solo":      {args: "INDEX on|off", min: 2, max: 2, brief: "solo a wave track", run: (*Interpreter).setSolo},
		"sync-lock": {args: "on|off", min: 1, max: 1, brief: "link edits across track groups", run: (*Interpreter).setSyncLock},
		"tracks":    {brief: "list tracks", run: (*Interpreter).listTracks},
		"history":   {brief: "list undo states", run: (*Interpreter).listHistory},
		"help":      {brief: "list commands", run: (*Interpreter).help},
	}
}

// Run executes every command in r, stopping at the first failure
func (in *Interpreter) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text, _, _ := strings.Cut(scanner.Text(), "#")
		for _, stmt := range strings.Split(text, ";") {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := in.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
		}
	}
	return scanner.Err()
}

// Exec runs one command; blank input does nothing
func (in *Interpreter) Exec(ctx context.Context, stmt string) error {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	h, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	if len(args) < h.min || (h.max >= 0 && len(args) > h.max) {
		return fmt.Errorf("usage: %s %s", name, h.args)
	}
	if err := h.run(in, ctx, args); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func parseTime(s string) (float64, error) {
	t, err := strconv.ParseFloat(s, 64)
	if err != nil || t < 0 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func (in *Interpreter) trackIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || i >= in.p.Tracks().Len() {
		return 0, fmt.Errorf("no track %q", s)
	}
	return i, nil
}

func (in *Interpreter) waveTrack(s string) (*track.WaveTrack, error) {
	i, err := in.trackIndex(s)
	if err != nil {
		return nil, err
	}
	w, ok := in.p.Tracks().At(i).(*track.WaveTrack)
	if !ok {
		return nil, fmt.Errorf("track %d is not a wave track", i)
	}
	return w, nil
}

func (in *Interpreter) selectTracks(_ context.Context, args []string) error {
	l := in.p.Tracks()
	switch strings.ToLower(args[0]) {
	case "all":
		l.SelectAll(true)
		return nil
	case "none":
		l.SelectAll(false)
		return nil
	}

	indices := make([]int, len(args))
	for n, a := range args {
		i, err := in.trackIndex(a)
		if err != nil {
			return err
		}
		indices[n] = i
	}
	l.SelectAll(false)
	for _, i := range indices {
		l.SetSelected(i, true)
	}
	return nil
}

func (in *Interpreter) setRange(_ context.Context, args []string) error {
	t0, err := parseTime(args[0])
	if err != nil {
		return err
	}
	t1 := t0
	if len(args) == 2 {
		if t1, err = parseTime(args[1]); err != nil {
			return err
		}
	}
	return in.p.SetSelection(t0, t1)
}

func (in *Interpreter) newTrack(_ context.Context, args []string) error {
	channels := 0
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid channel count %q", args[0])
		}
		channels = n
	}
	return in.p.AddTracks("Created new audio track", "New Track", in.p.NewWaveTrack(channels))
}

// tone renders a sine tone; a range selection overrides SECONDS
func (in *Interpreter) tone(_ context.Context, args []string) error {
	seconds, err := parseTime(args[0])
	if err != nil {
		return err
	}
	tone := effect.NewTone()
	if len(args) > 1 {
		if tone.Frequency, err = strconv.ParseFloat(args[1], 64); err != nil {
			return fmt.Errorf("invalid frequency %q", args[1])
		}
	}
	if len(args) > 2 {
		if tone.Amplitude, err = strconv.ParseFloat(args[2], 64); err != nil {
			return fmt.Errorf("invalid level %q", args[2])
		}
	}
	return in.p.Generate(tone, seconds)
}

// addLabel writes to the first selected label track, creating one if needed
func (in *Interpreter) addLabel(_ context.Context, args []string) error {
	t0, err := parseTime(args[0])
	if err != nil {
		return err
	}
	t1, err := parseTime(args[1])
	if err != nil {
		return err
	}
	title := strings.Join(args[2:], " ")

	for _, t := range in.p.Tracks().SelectedTracks() {
		if lt, ok := t.(*track.LabelTrack); ok {
			if err := lt.AddLabel(t0, t1, title); err != nil {
				return err
			}
			in.p.PushState("Added label", "Label")
			return nil
		}
	}
	lt := track.NewLabelTrack()
	if err := lt.AddLabel(t0, t1, title); err != nil {
		return err
	}
	return in.p.AddTracks("Added label", "Label", lt)
}

func (in *Interpreter) setGain(_ context.Context, args []string) error {
	w, err := in.waveTrack(args[0])
	if err != nil {
		return err
	}
	db, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid gain %q", args[1])
	}
	w.SetGainDB(db)
	in.p.PushState(fmt.Sprintf("Set gain of %s to %.1f dB", w.Name(), db), "Gain")
	return nil
}

func (in *Interpreter) setPan(_ context.Context, args []string) error {
	w, err := in.waveTrack(args[0])
	if err != nil {
		return err
	}
	pan, err := strconv.ParseFloat(args[1], 32)
	if err != nil || pan < -1 || pan > 1 {
		return fmt.Errorf("invalid pan %q", args[1])
	}
	w.SetPan(float32(pan))
	in.p.PushState(fmt.Sprintf("Set pan of %s to %.2f", w.Name(), pan), "Pan")
	return nil
}

func (in *Interpreter) setMute(_ context.Context, args []string) error {
	w, err := in.waveTrack(args[0])
	if err != nil {
		return err
	}
	on, err := parseSwitch(args[1])
	if err != nil {
		return err
	}
	w.SetMute(on)
	in.p.PushState("Changed mute", "Mute")
	return nil
}

func (in *Interpreter) setSolo(_ context.Context, args []string) error {
	w, err := in.waveTrack(args[0])
	if err != nil {
		return err
	}
	on, err := parseSwitch(args[1])
	if err != nil {
		return err
	}
	w.SetSolo(on)
	in.p.PushState("Changed solo", "Solo")
	return nil
}

func (in *Interpreter) clipTrim(_ context.Context, args []string) error {
	i, err := in.trackIndex(args[0])
	if err != nil {
		return err
	}
	clip, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid clip %q", args[1])
	}
	left, err := parseTime(args[2])
	if err != nil {
		return err
	}
	right, err := parseTime(args[3])
	if err != nil {
		return err
	}
	return in.p.SetClipTrim(i, clip, left, right)
}

func (in *Interpreter) setSyncLock(_ context.Context, args []string) error {
	on, err := parseSwitch(args[0])
	if err != nil {
		return err
	}
	in.p.SetSyncLock(on)
	return nil
}

func (in *Interpreter) listTracks(_ context.Context, _ []string) error {
	l := in.p.Tracks()
	for i := 0; i < l.Len(); i++ {
		t := l.At(i)
		mark := " "
		if l.Selected(i) {
			mark = "*"
		}
		fmt.Fprintf(in.out, "%s %2d %-5s %-24q %2dch [%.3f, %.3f)",
			mark, i, t.Kind(), t.Name(), t.Channels(), t.StartTime(), t.EndTime())
		if w, ok := t.(*track.WaveTrack); ok {
			peak, rms, err := w.Levels()
			if err != nil {
				return err
			}
			fmt.Fprintf(in.out, " peak %.3f rms %.3f", peak, rms)
		}
		fmt.Fprintln(in.out)
	}
	sel := in.p.Selection()
	fmt.Fprintf(in.out, "selection [%.3f, %.3f)\n", sel.T0, sel.T1)
	return nil
}

func (in *Interpreter) listHistory(_ context.Context, _ []string) error {
	h := in.p.History()
	for i, s := range h.States() {
		mark := " "
		if i == h.Position() {
			mark = ">"
		}
		fmt.Fprintf(in.out, "%s %3d %-14s %s\n", mark, i, s.Short, s.Long)
	}
	return nil
}

func (in *Interpreter) help(_ context.Context, _ []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h := commands[name]
		fmt.Fprintf(in.out, "  %-30s %s\n", strings.TrimSpace(name+" "+h.args), h.brief)
	}
	return nil
}
