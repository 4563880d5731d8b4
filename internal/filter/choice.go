package filter

// Sentinel is the wire value meaning "no selection" for single-select fields.
// It never appears inside a Choice.
const Sentinel = "all"

// Choice is a single-select filter value: either unconstrained or exactly one value.
type Choice[T ~string] struct {
	value T
	set   bool
}

// Any returns the unconstrained choice.
func Any[T ~string]() Choice[T] {
	return Choice[T]{}
}

// Only selects v. The empty string and Sentinel select nothing.
func Only[T ~string](v T) Choice[T] {
	if v == "" || string(v) == Sentinel {
		return Choice[T]{}
	}
	return Choice[T]{value: v, set: true}
}

// Get returns the selected value and whether one is selected.
func (c Choice[T]) Get() (T, bool) {
	return c.value, c.set
}

// IsSet reports whether a value is selected.
func (c Choice[T]) IsSet() bool {
	return c.set
}

// Wire returns the selected value, or Sentinel when unconstrained.
func (c Choice[T]) Wire() string {
	if !c.set {
		return Sentinel
	}
	return string(c.value)
}
