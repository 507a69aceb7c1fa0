package sampler

import (
	"errors"
	"fmt"
	"math"
)

// Policy selects how camera positions are distributed over the sphere
// shell.
type Policy string

const (
	// PolicyRandom draws radius, inclination and azimuth independently and
	// uniformly within the configured bounds.
	PolicyRandom Policy = "random"
	// PolicyUniform steps deterministic inclination bands between start and
	// stop; only the azimuth stays random per point.
	PolicyUniform Policy = "uniform"
)

// ErrInvalidSpec marks malformed sampling parameters. It is raised before
// any rendering starts.
var ErrInvalidSpec = errors.New("sampler: invalid sampling spec")

// SamplingSpec describes one placement policy. Angle fields are radians;
// inclinations are measured from the +Z pole.
type SamplingSpec struct {
	Policy Policy

	// Random policy bounds.
	RadiusMin, RadiusMax           float64
	InclinationMin, InclinationMax float64
	AzimuthMin, AzimuthMax         float64

	// Uniform policy parameters.
	Radius           float64
	InclinationStart float64
	InclinationStop  float64
	InclinationStep  float64
}

// Validate reports whether the spec can produce poses. All failures wrap
// ErrInvalidSpec.
func (s SamplingSpec) Validate() error {
	switch s.Policy {
	case PolicyRandom:
		if s.RadiusMin < 0 || s.RadiusMax < 0 {
			return fmt.Errorf("%w: radius bounds must be non-negative", ErrInvalidSpec)
		}
		if s.RadiusMin > s.RadiusMax {
			return fmt.Errorf("%w: radius bounds inverted (%v > %v)", ErrInvalidSpec, s.RadiusMin, s.RadiusMax)
		}
		if s.InclinationMin > s.InclinationMax {
			return fmt.Errorf("%w: inclination bounds inverted", ErrInvalidSpec)
		}
		if s.AzimuthMin > s.AzimuthMax {
			return fmt.Errorf("%w: azimuth bounds inverted", ErrInvalidSpec)
		}
		return nil
	case PolicyUniform:
		if s.Radius < 0 {
			return fmt.Errorf("%w: radius must be non-negative", ErrInvalidSpec)
		}
		if s.InclinationStep == 0 && s.InclinationStart != s.InclinationStop {
			return fmt.Errorf("%w: zero inclination step with start != stop", ErrInvalidSpec)
		}
		if s.InclinationStep != 0 && (s.InclinationStop-s.InclinationStart)*s.InclinationStep < 0 {
			return fmt.Errorf("%w: inclination step does not advance start toward stop", ErrInvalidSpec)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown policy %q", ErrInvalidSpec, s.Policy)
	}
}

// Band is one discrete inclination of the uniform policy together with the
// number of points allotted to it.
type Band struct {
	Inclination float64
	Count       int
}

// Bands enumerates the inclination bands of a uniform spec and distributes
// n points across them as evenly as possible: floor(n/B) per band plus one
// extra point to each of the first n mod B bands, preserving band order.
func Bands(spec SamplingSpec, n int) []Band {
	var bands []Band
	if spec.InclinationStep == 0 {
		bands = []Band{{Inclination: spec.InclinationStart}}
	} else {
		// The stop value is inclusive; tolerate float accumulation when
		// deciding whether the last band still fits.
		tol := math.Abs(spec.InclinationStep) * 1e-9
		for k := 0; ; k++ {
			inc := spec.InclinationStart + float64(k)*spec.InclinationStep
			if spec.InclinationStep > 0 && inc > spec.InclinationStop+tol {
				break
			}
			if spec.InclinationStep < 0 && inc < spec.InclinationStop-tol {
				break
			}
			bands = append(bands, Band{Inclination: inc})
		}
	}

	base, rem := n/len(bands), n%len(bands)
	for i := range bands {
		bands[i].Count = base
		if i < rem {
			bands[i].Count++
		}
	}
	return bands
}
