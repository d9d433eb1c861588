package imagetool

import (
	"context"
	"image/color"
	"path/filepath"
	"slices"
	"testing"

	"github.com/disintegration/imaging"

	apperr "github.com/nicholaspatten/svgit/pkg/errors"
	"github.com/nicholaspatten/svgit/pkg/toolexec"
)

type recordingRunner struct {
	calls  []toolexec.Command
	result *toolexec.Result
	err    error
}

func (r *recordingRunner) Run(_ context.Context, c toolexec.Command, _ toolexec.Budget) (*toolexec.Result, error) {
	r.calls = append(r.calls, c)
	if r.result == nil {
		return &toolexec.Result{}, r.err
	}
	return r.result, r.err
}

func TestMonochromeArgv(t *testing.T) {
	r := &recordingRunner{}
	m := NewMagick(r, "/opt/bin/magick")
	if err := m.Monochrome(context.Background(), "in file.png", "out.pbm"); err != nil {
		t.Fatalf("Monochrome() error: %v", err)
	}
	if len(r.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(r.calls))
	}
	c := r.calls[0]
	if c.Path != "/opt/bin/magick" {
		t.Errorf("Path = %q", c.Path)
	}
	want := []string{"in file.png", "-background", "white", "-alpha", "remove", "-alpha", "off",
		"-colorspace", "Gray", "-contrast-stretch", "0x15%", "-threshold", "75%", "-monochrome", "out.pbm"}
	if !slices.Equal(c.Args, want) {
		t.Errorf("Args = %v, want %v", c.Args, want)
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperr.Code
	}{
		{"exit", &toolexec.ExitError{Tool: "magick", ExitCode: 1, Stderr: "no decode delegate"}, apperr.ErrCodePreprocessFailed},
		{"timeout", &toolexec.TimeoutError{Tool: "magick"}, apperr.ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMagick(&recordingRunner{err: tt.err}, "")
			err := m.Normalize(context.Background(), "a.png", "b.png")
			if got := apperr.GetCode(err); got != tt.code {
				t.Errorf("code = %v, want %v", got, tt.code)
			}
		})
	}

	m := NewMagick(&recordingRunner{err: &toolexec.ExitError{Tool: "magick", ExitCode: 1, Stderr: "no decode delegate"}}, "")
	if got := apperr.Details(m.Normalize(context.Background(), "a", "b")); got != "no decode delegate" {
		t.Errorf("details = %q", got)
	}
}

func TestMagickDimensions(t *testing.T) {
	r := &recordingRunner{result: &toolexec.Result{Stdout: "640 480\n"}}
	d, err := NewMagick(r, "").Dimensions(context.Background(), "x.gif")
	if err != nil {
		t.Fatalf("Dimensions() error: %v", err)
	}
	if d != (Dimensions{640, 480}) {
		t.Errorf("Dimensions = %v", d)
	}
	if got := r.calls[0].Args[len(r.calls[0].Args)-1]; got != "x.gif[0]" {
		t.Errorf("identify target = %q, want first frame", got)
	}
}

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		in   string
		want Dimensions
		ok   bool
	}{
		{"100 50", Dimensions{100, 50}, true},
		{"  7 9 \n", Dimensions{7, 9}, true},
		{"100", Dimensions{}, false},
		{"a b", Dimensions{}, false},
		{"0 10", Dimensions{}, false},
	}
	for _, tt := range tests {
		got, err := ParseDimensions(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseDimensions(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestDecodeIdentifier(t *testing.T) {
	dir := t.TempDir()
	img := imaging.New(37, 21, color.NRGBA{R: 255, A: 255})
	for _, name := range []string{"a.png", "a.jpg", "a.gif", "a.bmp", "a.tiff"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := imaging.Save(img, path); err != nil {
				t.Fatal(err)
			}
			d, err := DecodeIdentifier{}.Dimensions(context.Background(), path)
			if err != nil {
				t.Fatalf("Dimensions() error: %v", err)
			}
			if d != (Dimensions{37, 21}) {
				t.Errorf("Dimensions = %v, want 37x21", d)
			}
		})
	}
}

func TestChainIdentifierFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.png")
	if err := imaging.Save(imaging.New(12, 8, color.White), path); err != nil {
		t.Fatal(err)
	}
	failing := NewMagick(&recordingRunner{err: &toolexec.ExitError{Tool: "magick", ExitCode: 1}}, "")
	d, err := ChainIdentifier{failing, DecodeIdentifier{}}.Dimensions(context.Background(), path)
	if err != nil {
		t.Fatalf("Dimensions() error: %v", err)
	}
	if d != (Dimensions{12, 8}) {
		t.Errorf("Dimensions = %v", d)
	}

	if _, err := (ChainIdentifier{failing}).Dimensions(context.Background(), path); err == nil {
		t.Error("expected error when every identifier fails")
	}
}
