// Package svgpost repairs tracer output before it is returned.
//
// Three fixes are applied, in order:
//
//  1. A viewBox with a negative origin is moved to "0 0 w h".
//  2. When the source image size is known, the root width, height and
//     viewBox are set to it so the SVG renders at the original size.
//  3. Childless <rect> elements filled solid black are removed; the color
//     tracer emits them as background artifacts.
//
// The document is edited as an XML tree. Output that does not parse as XML
// is patched with the equivalent textual substitutions instead. No step
// ever fails the conversion; problems are reported as Warnings.
package svgpost

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Options carries the source image size. Zero values mean unknown.
type Options struct {
	Width  int
	Height int
}

func (o Options) haveDims() bool { return o.Width > 0 && o.Height > 0 }

// Warning is a non-fatal post-processing problem.
type Warning struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

func (w Warning) String() string { return w.Step + ": " + w.Message }

// Step names used in warnings.
const (
	StepParse      = "parse"
	StepViewBox    = "viewbox"
	StepDimensions = "dimensions"
)

var blackFills = map[string]bool{"black": true, "#000000": true, "#000": true}

// Process applies the fixes to svg and returns the result.
func Process(svg string, opts Options) (string, []Warning) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(svg); err != nil || doc.Root() == nil {
		msg := "document has no root element"
		if err != nil {
			msg = err.Error()
		}
		out, warns := processText(svg, opts)
		return out, append([]Warning{{Step: StepParse, Message: msg + "; used text rewrite"}}, warns...)
	}

	var warns []Warning
	root := doc.Root()

	if vb := root.SelectAttrValue("viewBox", ""); vb != "" {
		fixed, changed, err := normalizeViewBox(vb)
		switch {
		case err != nil:
			warns = append(warns, Warning{Step: StepViewBox, Message: err.Error()})
		case changed:
			root.CreateAttr("viewBox", fixed)
		}
	}

	if opts.haveDims() {
		root.CreateAttr("width", strconv.Itoa(opts.Width))
		root.CreateAttr("height", strconv.Itoa(opts.Height))
		root.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", opts.Width, opts.Height))
	} else {
		warns = append(warns, Warning{Step: StepDimensions, Message: "source dimensions unknown; kept tracer size"})
	}

	for _, rect := range doc.FindElements("//rect") {
		if len(rect.ChildElements()) > 0 {
			continue
		}
		if blackFills[rect.SelectAttrValue("fill", "")] {
			if p := rect.Parent(); p != nil {
				p.RemoveChild(rect)
			}
		}
	}

	out, err := doc.WriteToString()
	if err != nil {
		text, more := processText(svg, opts)
		warns = append(warns, Warning{Step: StepParse, Message: err.Error() + "; used text rewrite"})
		return text, append(warns, more...)
	}
	return out, warns
}

// normalizeViewBox rewrites a negative-origin viewBox to "0 0 w h".
func normalizeViewBox(vb string) (string, bool, error) {
	fields := strings.FieldsFunc(vb, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
	if len(fields) != 4 {
		return vb, false, fmt.Errorf("viewBox %q: want 4 numbers, got %d", vb, len(fields))
	}
	nums := make([]float64, 4)
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return vb, false, fmt.Errorf("viewBox %q: %v", vb, err)
		}
		nums[i] = n
	}
	if nums[0] >= 0 && nums[1] >= 0 {
		return vb, false, nil
	}
	return "0 0 " + fields[2] + " " + fields[3], true, nil
}

var (
	reViewBox = regexp.MustCompile(`viewBox="([^"]*)"`)
	reWidth   = regexp.MustCompile(`\swidth="[^"]*"`)
	reHeight  = regexp.MustCompile(`\sheight="[^"]*"`)
	reRect    = regexp.MustCompile(`<rect[^>]*fill="(?:black|#000000|#000)"[^>]*/>`)
)

// processText is the pattern-matching fallback for documents that do not
// parse. It edits only the first viewBox, width and height attributes.
func processText(svg string, opts Options) (string, []Warning) {
	var warns []Warning

	if m := reViewBox.FindStringSubmatchIndex(svg); m != nil {
		vb := svg[m[2]:m[3]]
		fixed, changed, err := normalizeViewBox(vb)
		switch {
		case err != nil:
			warns = append(warns, Warning{Step: StepViewBox, Message: err.Error()})
		case changed:
			svg = svg[:m[0]] + `viewBox="` + fixed + `"` + svg[m[1]:]
		}
	}

	if opts.haveDims() {
		svg = replaceFirst(reWidth, svg, fmt.Sprintf(` width="%d"`, opts.Width))
		svg = replaceFirst(reHeight, svg, fmt.Sprintf(` height="%d"`, opts.Height))
		svg = replaceFirst(reViewBox, svg, fmt.Sprintf(`viewBox="0 0 %d %d"`, opts.Width, opts.Height))
	} else {
		warns = append(warns, Warning{Step: StepDimensions, Message: "source dimensions unknown; kept tracer size"})
	}

	svg = reRect.ReplaceAllString(svg, "")
	return svg, warns
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
