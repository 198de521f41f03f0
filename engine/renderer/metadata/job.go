package metadata

/** @brief Describes a type of job */
type JobType int

const (
	/** @brief A general job that does not have any specific thread requirements. */
	JOB_TYPE_GENERAL JobType = 0x02
	/**
	 * @brief A resource loading job: file reads and decoding. The result is
	 * handed back to the main thread, which does the GPU upload.
	 */
	JOB_TYPE_RESOURCE_LOAD JobType = 0x04
)

func (t JobType) String() string {
	switch t {
	case JOB_TYPE_GENERAL:
		return "general"
	case JOB_TYPE_RESOURCE_LOAD:
		return "resource load"
	default:
		return "unknown"
	}
}

/** @brief Runs on a worker goroutine. Required. */
type JobStart func() (interface{}, error)

/** @brief Invoked on the thread that calls JobSystem.Update with the result of JobStart. */
type JobOnComplete func(result interface{})

/** @brief Invoked on the thread that calls JobSystem.Update when JobStart failed. */
type JobOnFailure func(err error)

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	Name string
	Type JobType
	/** @brief The work itself, executed on a worker. */
	OnStart JobStart
	/** @brief Optional. */
	OnComplete JobOnComplete
	/** @brief Optional. */
	OnFailure JobOnFailure
}
