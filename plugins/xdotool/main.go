// Command xdotool-plugin is a headpad plugin that drives the X11 desktop
// through xdotool. It reads one request on stdin and writes one response
// on stdout.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Request is the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response is the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Options are read from the action config, then overridden by params.
type Options struct {
	Button    int      `json:"button"`
	Repeat    int      `json:"repeat"`
	Direction string   `json:"direction"`
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
	Text      string   `json:"text"`
}

// argBuilder turns options into xdotool arguments.
type argBuilder func(Options) ([]string, error)

var actions = map[string]argBuilder{
	"click":       clickArgs,
	"scroll":      scrollArgs,
	"key":         keyArgs,
	"type":        typeArgs,
	"volume-up":   fixedKey("XF86AudioRaiseVolume"),
	"volume-down": fixedKey("XF86AudioLowerVolume"),
	"volume-mute": fixedKey("XF86AudioMute"),
	"media-play":  fixedKey("XF86AudioPlay"),
	"media-next":  fixedKey("XF86AudioNext"),
	"media-prev":  fixedKey("XF86AudioPrev"),
}

var modifierMap = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
	"super":   "super",
	"cmd":     "super",
	"command": "super",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	args, err := BuildArgs(req)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	out, err := exec.Command("xdotool", args...).CombinedOutput()
	if err != nil {
		writeResponse(Response{Error: fmt.Sprintf("action %s failed: %v: %s", req.Action, err, strings.TrimSpace(string(out)))})
		return
	}
	writeResponse(Response{Success: true})
}

// BuildArgs returns the xdotool arguments for a request.
func BuildArgs(req Request) ([]string, error) {
	build, ok := actions[req.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}

	var opts Options
	for _, raw := range []json.RawMessage{req.Config, req.Params} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, fmt.Errorf("failed to parse options: %w", err)
		}
	}
	return build(opts)
}

func repeatArgs(n int) []string {
	if n <= 1 {
		return nil
	}
	return []string{"--repeat", strconv.Itoa(n)}
}

func clickArgs(o Options) ([]string, error) {
	button := o.Button
	if button == 0 {
		button = 1
	}
	if button < 1 || button > 9 {
		return nil, fmt.Errorf("invalid button %d", button)
	}
	args := append([]string{"click"}, repeatArgs(o.Repeat)...)
	return append(args, strconv.Itoa(button)), nil
}

// scrollArgs scrolls with the wheel buttons 4 (up) and 5 (down).
func scrollArgs(o Options) ([]string, error) {
	var button string
	switch strings.ToLower(o.Direction) {
	case "", "down":
		button = "5"
	case "up":
		button = "4"
	case "left":
		button = "6"
	case "right":
		button = "7"
	default:
		return nil, fmt.Errorf("invalid scroll direction %q", o.Direction)
	}
	repeat := max(o.Repeat, 3)
	return []string{"click", "--repeat", strconv.Itoa(repeat), button}, nil
}

func keyArgs(o Options) ([]string, error) {
	if o.Key == "" {
		return nil, fmt.Errorf("key is required")
	}
	combo := make([]string, 0, len(o.Modifiers)+1)
	for _, m := range o.Modifiers {
		mod, ok := modifierMap[strings.ToLower(m)]
		if !ok {
			return nil, fmt.Errorf("unknown modifier %q", m)
		}
		combo = append(combo, mod)
	}
	combo = append(combo, o.Key)
	args := append([]string{"key"}, repeatArgs(o.Repeat)...)
	return append(args, strings.Join(combo, "+")), nil
}

func typeArgs(o Options) ([]string, error) {
	if o.Text == "" {
		return nil, fmt.Errorf("text is required")
	}
	return []string{"type", "--", o.Text}, nil
}

func fixedKey(key string) argBuilder {
	return func(Options) ([]string, error) {
		return []string{"key", key}, nil
	}
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
