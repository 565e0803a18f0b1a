package features

// ForwardFill replaces nil entries with the most recent present value.
// A leading run of nils takes the first present value. Returns nil when
// no value is present at all.
func ForwardFill(values []*float64) []float64 {
	first := -1
	for i, v := range values {
		if v != nil {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}
	out := make([]float64, len(values))
	last := *values[first]
	for i, v := range values {
		if v != nil {
			last = *v
		}
		out[i] = last
	}
	return out
}

// CountPresent returns the number of non-nil entries.
func CountPresent(values []*float64) int {
	n := 0
	for _, v := range values {
		if v != nil {
			n++
		}
	}
	return n
}

// Mean returns the arithmetic mean, 0 for an empty series.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// LeastSquaresSlope fits y = a + b*x with x = 0..n-1 and returns b.
// Fewer than two points yield 0.
func LeastSquaresSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	xMean := float64(n-1) / 2
	yMean := Mean(values)
	num, den := 0.0, 0.0
	for i, y := range values {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// PercentChange returns (last-first)/first*100. Missing endpoints or a zero
// baseline give 0; callers cannot tell that apart from a flat series.
func PercentChange(first, last *float64) float64 {
	if first == nil || last == nil || *first == 0 {
		return 0
	}
	return (*last - *first) / *first * 100
}
