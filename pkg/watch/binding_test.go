package watch

import (
	"testing"

	"github.com/systemstart/assetpipe/pkg/api"
)

func TestBinding_Matches(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"source/sass/**/*.scss", "source/sass/style.scss", true},
		{"source/sass/**/*.scss", "source/sass/blocks/header.scss", true},
		{"source/sass/**/*.scss", "source/sass/style.css", false},
		{"source/*.html", "source/index.html", true},
		{"source/*.html", "source/pages/about.html", false},
		{"source/img/icon-*.svg", "source/img/icon-cart.svg", true},
		{"source/img/icon-*.svg", "source/img/logo.svg", false},
		{"source/js/**/*.js", "build/js/app.js", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			b := Binding{Pattern: tt.pattern}
			if got := b.Matches(tt.path); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestBindingsFromConfig(t *testing.T) {
	cfg, err := api.DefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	bindings := BindingsFromConfig(cfg.Watch)
	if len(bindings) != 4 {
		t.Fatalf("expected 4 bindings, got %d", len(bindings))
	}
	for _, b := range bindings {
		if !b.Reload || len(b.Tasks) == 0 {
			t.Errorf("unexpected binding %+v", b)
		}
	}
}
