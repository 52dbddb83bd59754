package main

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/afero"

	"github.com/jamesainslie/scour/pkg/scour/config"
	"github.com/jamesainslie/scour/pkg/scour/targets"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

func TestParseCommaSeparated(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
		{",", []string{}},
	}

	for _, tt := range tests {
		got := parseCommaSeparated(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseCommaSeparated(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func TestTargetPatterns(t *testing.T) {
	configured := []string{"user-temp", "system-temp"}

	got := targetPatterns(nil, configured)
	if !reflect.DeepEqual(got, configured) {
		t.Errorf("no args: got %v, want %v", got, configured)
	}

	got = targetPatterns([]string{"chrome-cache,edge-cache", "prefetch"}, configured)
	want := []string{"chrome-cache", "edge-cache", "prefetch"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args: got %v, want %v", got, want)
	}
}

func TestSelectTargets(t *testing.T) {
	custom := []config.CustomTarget{
		{Name: "build-tmp", Path: "/work/build/tmp"},
		{Name: "npm-logs", Path: "/work/.npm/_logs"},
	}

	tests := []struct {
		name       string
		patterns   []string
		wantKinds  []targets.Kind
		wantCustom []string
		wantErr    bool
	}{
		{
			name:      "catalog kinds",
			patterns:  []string{"system-temp", "user-temp"},
			wantKinds: []targets.Kind{targets.UserTemp, targets.SystemTemp},
		},
		{
			name:       "custom by name",
			patterns:   []string{"Build-Tmp"},
			wantCustom: []string{"build-tmp"},
		},
		{
			name:       "custom by wildcard",
			patterns:   []string{"*-logs", "npm-logs"},
			wantCustom: []string{"npm-logs"},
		},
		{
			name:       "all",
			patterns:   []string{"all"},
			wantKinds:  targets.Kinds(),
			wantCustom: []string{"build-tmp", "npm-logs"},
		},
		{
			name:     "unknown",
			patterns: []string{"nope"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := selectTargets(tt.patterns, custom)
			if tt.wantErr {
				if !errors.Is(err, types.ErrNotFound) {
					t.Fatalf("error = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(sel.Kinds, tt.wantKinds) {
				t.Errorf("kinds = %v, want %v", sel.Kinds, tt.wantKinds)
			}
			var names []string
			for _, c := range sel.Custom {
				names = append(names, c.Name)
			}
			if !reflect.DeepEqual(names, tt.wantCustom) {
				t.Errorf("custom = %v, want %v", names, tt.wantCustom)
			}
		})
	}
}

func TestResolveSelection(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, d := range []string{"/var/tmp", "/work/build/tmp"} {
		if err := fs.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	r := targets.NewResolver(
		targets.WithFs(fs),
		targets.WithOS("linux"),
		targets.WithHome("/home/ada"),
		targets.WithCacheHome("/home/ada/.cache"),
		targets.WithEnv(func(string) string { return "" }),
	)

	sel := selection{
		Kinds: []targets.Kind{targets.SystemTemp, targets.Prefetch},
		Custom: []config.CustomTarget{
			{Name: "build", Path: "/work/build/tmp"},
			{Name: "again", Path: "/var/tmp"},
			{Name: "gone", Path: "/work/gone"},
		},
	}

	tgts, skipped := resolveSelection(r, sel)

	var roots []string
	for _, tgt := range tgts {
		roots = append(roots, tgt.Root)
	}
	want := []string{filepath.Clean("/var/tmp"), filepath.Clean("/work/build/tmp")}
	if !reflect.DeepEqual(roots, want) {
		t.Errorf("roots = %v, want %v", roots, want)
	}

	if len(skipped) != 2 {
		t.Fatalf("skipped = %d, want 2: %+v", len(skipped), skipped)
	}
	if skipped[0].Target.Kind != string(targets.Prefetch) {
		t.Errorf("skipped[0] kind = %q, want prefetch", skipped[0].Target.Kind)
	}
	if skipped[1].Target.Label != "gone" {
		t.Errorf("skipped[1] label = %q, want gone", skipped[1].Target.Label)
	}
}
