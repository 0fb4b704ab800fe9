package main

import (
	"encoding/json"
	"os"
	"slices"
	"testing"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name   string
		action string
		config string
		params string
		want   []string
	}{
		{"default click", "click", "", "", []string{"click", "1"}},
		{"double right click", "click", `{"button":3,"repeat":2}`, "", []string{"click", "--repeat", "2", "3"}},
		{"params override config", "click", `{"button":3}`, `{"button":2}`, []string{"click", "2"}},
		{"scroll down by default", "scroll", "", "", []string{"click", "--repeat", "3", "5"}},
		{"scroll up", "scroll", `{"direction":"up","repeat":5}`, "", []string{"click", "--repeat", "5", "4"}},
		{"key combo", "key", `{"key":"Tab","modifiers":["cmd","Shift"]}`, "", []string{"key", "super+shift+Tab"}},
		{"type text", "type", `{"text":"hello"}`, "", []string{"type", "--", "hello"}},
		{"media key", "volume-up", "", "", []string{"key", "XF86AudioRaiseVolume"}},
		{"null config", "click", "null", "", []string{"click", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildArgs(Request{Action: tt.action, Config: json.RawMessage(tt.config), Params: json.RawMessage(tt.params)})
			if err != nil {
				t.Fatalf("BuildArgs() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("BuildArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildArgs_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		action string
		config string
	}{
		{"unknown action", "launch", ""},
		{"bad button", "click", `{"button":12}`},
		{"bad direction", "scroll", `{"direction":"sideways"}`},
		{"missing key", "key", `{}`},
		{"unknown modifier", "key", `{"key":"a","modifiers":["hyper"]}`},
		{"missing text", "type", ""},
		{"bad json", "click", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildArgs(Request{Action: tt.action, Config: json.RawMessage(tt.config)}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestManifestListsEveryAction(t *testing.T) {
	data, err := os.ReadFile("plugin.json")
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	var manifest struct {
		Actions []string `json:"actions"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	for name := range actions {
		if !slices.Contains(manifest.Actions, name) {
			t.Errorf("manifest is missing action %q", name)
		}
	}
	if len(manifest.Actions) != len(actions) {
		t.Errorf("manifest lists %d actions, plugin has %d", len(manifest.Actions), len(actions))
	}
}
