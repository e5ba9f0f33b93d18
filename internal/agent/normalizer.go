package agent

import "math"

// RunningMeanStd tracks first and second moments of a scalar stream with
// Welford's update so reward scales can be normalized online.
type RunningMeanStd struct {
	count float64
	mean  float64
	m2    float64
}

func NewRunningMeanStd() *RunningMeanStd {
	return &RunningMeanStd{}
}

func (r *RunningMeanStd) Update(x float64) {
	r.count++
	delta := x - r.mean
	r.mean += delta / r.count
	r.m2 += delta * (x - r.mean)
}

func (r *RunningMeanStd) Mean() float64 { return r.mean }

func (r *RunningMeanStd) Std() float64 {
	if r.count < 2 {
		return 1.0
	}
	std := math.Sqrt(r.m2 / r.count)
	if std == 0 {
		return 1.0
	}
	return std
}

// Normalize scales x by the running standard deviation without centering,
// which keeps reward signs intact.
func (r *RunningMeanStd) Normalize(x float64) float64 {
	return x / r.Std()
}
