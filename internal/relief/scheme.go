// Package relief implements the color-scheme file format, its relative-
// to-absolute elevation resolution, and the colorize/relief-shade/
// water-detect pixel kernels that turn a halo-filled elevation matrix
// into RGB pixels — the pure, collaborator-supplied pieces this system
// treats as leaves.
package relief

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/relief-render/reliefrender/internal/rerr"
	"github.com/relief-render/reliefrender/internal/wire"
)

// Stop is one (elevation, RGB) color-scheme entry.
type Stop struct {
	Elevation int32
	R, G, B   uint8
}

// Record converts a Stop to the wire representation carried in an Init
// frame.
func (s Stop) Record() wire.ColorRecord {
	return wire.ColorRecord{Elevation: s.Elevation, R: s.R, G: s.G, B: s.B, Alpha: 1.0}
}

func stopFromRecord(r wire.ColorRecord) Stop {
	return Stop{Elevation: r.Elevation, R: r.R, G: r.G, B: r.B}
}

// Scheme is a parsed color scheme: sorted stops (with sentinel copies of
// the first/last stop at either end, matching the source format so
// colorize never has to special-case the boundary) and an optional water
// color.
type Scheme struct {
	IsAbsolute bool
	Stops      []Stop // Stops[0] and Stops[len-1] are sentinel copies
	WaterColor *Stop
}

// Records returns the scheme's stops without the sentinel copies, the
// shape an Init frame's Colors field carries.
func (s Scheme) Records() []wire.ColorRecord {
	if len(s.Stops) < 2 {
		return nil
	}
	inner := s.Stops[1 : len(s.Stops)-1]
	out := make([]wire.ColorRecord, len(inner))
	for i, st := range inner {
		out[i] = st.Record()
	}
	return out
}

// FromInit reconstructs a Scheme from a received Init frame, re-deriving
// the sentinel copies the wire format drops.
func FromInit(msg wire.Init) Scheme {
	s := Scheme{IsAbsolute: msg.IsAbsolute}
	if msg.WaterColor != nil {
		w := stopFromRecord(*msg.WaterColor)
		s.WaterColor = &w
	}
	if len(msg.Colors) == 0 {
		return s
	}
	s.Stops = make([]Stop, 0, len(msg.Colors)+2)
	s.Stops = append(s.Stops, stopFromRecord(msg.Colors[0]))
	for _, c := range msg.Colors {
		s.Stops = append(s.Stops, stopFromRecord(c))
	}
	s.Stops = append(s.Stops, stopFromRecord(msg.Colors[len(msg.Colors)-1]))
	return s
}

// Parse reads a color-scheme file: a header line of "Absolute" or
// "Relative", then one line per stop ("<elevation> <r> <g> <b>") or, if
// showWater, an optional water line ("W <r> <g> <b>"). Blank lines and
// lines starting with '#' are skipped. Stops need not arrive sorted; they
// are sorted ascending by elevation, and sentinel copies of the first and
// last stop are appended so colorize never has to special-case the ends.
func Parse(r io.Reader, showWater bool) (Scheme, error) {
	scanner := bufio.NewScanner(r)

	var isAbsolute int // -1 unknown, 0 relative, 1 absolute
	isAbsolute = -1
	for isAbsolute == -1 {
		if !scanner.Scan() {
			return Scheme{}, rerr.New(rerr.BadColorScheme, "color scheme file has no Absolute/Relative header")
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch line {
		case "Absolute":
			isAbsolute = 1
		case "Relative":
			isAbsolute = 0
		default:
			return Scheme{}, rerr.Newf(rerr.BadColorScheme, "expected Absolute or Relative, got %q", line)
		}
	}

	var stops []Stop
	var water *Stop
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return Scheme{}, rerr.Newf(rerr.BadColorScheme, "malformed color scheme line %q", line)
		}
		if fields[0] == "W" {
			if !showWater {
				continue
			}
			r, g, b, err := parseRGB(fields[1:])
			if err != nil {
				return Scheme{}, err
			}
			w := Stop{R: r, G: g, B: b}
			water = &w
			continue
		}
		elev, err := strconv.Atoi(fields[0])
		if err != nil {
			return Scheme{}, rerr.Wrapf(rerr.BadColorScheme, err, "invalid elevation %q", fields[0])
		}
		r, g, b, err := parseRGB(fields[1:])
		if err != nil {
			return Scheme{}, err
		}
		stops = append(stops, Stop{Elevation: int32(elev), R: r, G: g, B: b})
	}
	if err := scanner.Err(); err != nil {
		return Scheme{}, rerr.Wrap(rerr.BadColorScheme, err, "read color scheme file")
	}
	if len(stops) == 0 {
		return Scheme{}, rerr.New(rerr.BadColorScheme, "color scheme file has no stops")
	}

	sort.Slice(stops, func(i, j int) bool { return stops[i].Elevation < stops[j].Elevation })

	full := make([]Stop, 0, len(stops)+2)
	full = append(full, stops[0])
	full = append(full, stops...)
	full = append(full, stops[len(stops)-1])

	return Scheme{IsAbsolute: isAbsolute == 1, Stops: full, WaterColor: water}, nil
}

func parseRGB(fields []string) (r, g, b uint8, err error) {
	vals := make([]int, 3)
	for i, f := range fields {
		v, convErr := strconv.Atoi(f)
		if convErr != nil {
			return 0, 0, 0, rerr.Wrapf(rerr.BadColorScheme, convErr, "invalid color component %q", f)
		}
		vals[i] = v
	}
	return uint8(vals[0]), uint8(vals[1]), uint8(vals[2])
}

// Resolve converts a Relative scheme's percent-of-range elevations
// (0-100) into absolute elevations using the global elevation extremes,
// at the last possible moment per spec.md §3. Calling Resolve on an
// already-Absolute scheme is a no-op.
func (s *Scheme) Resolve(min, max int32) {
	if s.IsAbsolute {
		return
	}
	span := float64(max - min)
	for i := 1; i < len(s.Stops)-1; i++ {
		pct := float64(s.Stops[i].Elevation) / 100.0
		s.Stops[i].Elevation = int32(pct*span) + min
	}
	s.Stops[0].Elevation = s.Stops[1].Elevation
	s.Stops[len(s.Stops)-1].Elevation = s.Stops[len(s.Stops)-2].Elevation
	s.IsAbsolute = true
}
