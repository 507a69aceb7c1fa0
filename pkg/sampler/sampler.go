// Package sampler places cameras and lights on a sphere shell around the
// scene origin, either fully at random or banded by inclination.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/goliatone/go-rendergen/pkg/geom"
)

var origin = geom.Vec3{}

// Sample produces n poses in generation order; callers index views by
// position in the returned slice. The random policy is deterministic given
// a seeded rng; the uniform policy is deterministic except for the azimuth,
// which is drawn uniformly within each band.
func Sample(spec SamplingSpec, n int, rng *rand.Rand) ([]geom.Pose, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative pose count %d", ErrInvalidSpec, n)
	}
	if rng == nil {
		return nil, errors.New("sampler: random source is required")
	}
	if n == 0 {
		return nil, nil
	}

	switch spec.Policy {
	case PolicyUniform:
		return sampleUniform(spec, n, rng), nil
	default:
		return sampleRandom(spec, n, rng), nil
	}
}

func sampleUniform(spec SamplingSpec, n int, rng *rand.Rand) []geom.Pose {
	poses := make([]geom.Pose, 0, n)
	for _, band := range Bands(spec, n) {
		for i := 0; i < band.Count; i++ {
			azimuth := rng.Float64() * 2 * math.Pi
			pos := geom.SphericalToCartesian(spec.Radius, band.Inclination, azimuth)
			poses = append(poses, geom.LookAt(pos, origin))
		}
	}
	return poses
}

func sampleRandom(spec SamplingSpec, n int, rng *rand.Rand) []geom.Pose {
	uniform := func(lo, hi float64) float64 {
		return lo + rng.Float64()*(hi-lo)
	}

	poses := make([]geom.Pose, 0, n)
	for i := 0; i < n; i++ {
		// Draw order is part of the reproducibility contract.
		inclination := uniform(spec.InclinationMin, spec.InclinationMax)
		azimuth := uniform(spec.AzimuthMin, spec.AzimuthMax)
		radius := uniform(spec.RadiusMin, spec.RadiusMax)
		pos := geom.SphericalToCartesian(radius, inclination, azimuth)
		poses = append(poses, geom.LookAt(pos, origin))
	}
	return poses
}
