package metadata

/** @brief Pixel size of a drawable surface or swapchain. */
type Extent struct {
	Width  uint32
	Height uint32
}

/** @brief A minimized window reports a zero extent in at least one dimension. */
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

/** @brief Outcome of acquiring a swapchain image. */
type AcquireStatus uint8

const (
	AcquireSuccess AcquireStatus = iota
	AcquireSuboptimal
	AcquireOutOfDate
)

func (s AcquireStatus) String() string {
	switch s {
	case AcquireSuccess:
		return "success"
	case AcquireSuboptimal:
		return "suboptimal"
	case AcquireOutOfDate:
		return "out of date"
	}
	return "unknown"
}

/** @brief Outcome of presenting a swapchain image. */
type PresentStatus uint8

const (
	PresentSuccess PresentStatus = iota
	PresentSuboptimal
	PresentOutOfDate
)

func (s PresentStatus) String() string {
	switch s {
	case PresentSuccess:
		return "success"
	case PresentSuboptimal:
		return "suboptimal"
	case PresentOutOfDate:
		return "out of date"
	}
	return "unknown"
}
