package intmath

func Abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func Sgn(x int64) int64 {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	default:
		return 0
	}
}
