package storage

import "github.com/papercomputeco/replay/pkg/trajectory"

// ValidatePageSize rejects non-positive page sizes.
func ValidatePageSize(pageSize int) error {
	if pageSize <= 0 {
		return &InvalidArgumentError{Argument: "pageSize", Reason: "must be positive"}
	}
	return nil
}

// ValidateTrajectory rejects values a driver cannot store.
func ValidateTrajectory(t *trajectory.Trajectory) error {
	if t == nil {
		return &InvalidArgumentError{Argument: "trajectory", Reason: "cannot store nil trajectory"}
	}
	return nil
}

// PageBounds returns the half-open window [lo, hi) of a bucket of length n for
// the given page. Pages before the start or past the end yield lo == hi.
func PageBounds(n, page, pageSize int) (lo, hi int) {
	if page < 0 || pageSize <= 0 {
		return 0, 0
	}

	// page*pageSize can overflow for absurd pages; anything past n is empty.
	if page > n/pageSize {
		return n, n
	}

	lo = page * pageSize
	if lo > n {
		lo = n
	}
	hi = lo + pageSize
	if hi > n || hi < lo {
		hi = n
	}
	return lo, hi
}
