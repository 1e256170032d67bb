package models

import "time"

// Progress is a snapshot of a running comparison, taken under the pool lock.
type Progress struct {
	Done      int // completed tasks, loaded ones included
	InFlight  int // tasks being executed
	Total     int // expected tasks, failures excluded
	Elapsed   time.Duration
	Remaining time.Duration // estimate, in-flight tasks counted half done
}

// RunSummary represents the aggregate result of one comparison run.
type RunSummary struct {
	Planned       int           // tasks planned for the current configuration
	Loaded        int           // tasks read back from the completed-task log
	Executed      int           // tasks that succeeded during this run
	Failed        int           // tasks that failed during this run
	Threads       int           // worker pool size
	Duration      time.Duration // wall time of the pool
	TaskDuration  time.Duration // summed encode+decode time of all results
	EncodedBytes  uint64        // summed encoded size of all results
	Results       int           // results fed to aggregation
	Groups        int           // codec/subsampling/effort batches reported
	RecomputedLog bool          // distortions were recomputed from saved encodings
}

// AverageEncodedBytes returns the mean encoded size per result.
func (s RunSummary) AverageEncodedBytes() float64 {
	if s.Results == 0 {
		return 0
	}
	return float64(s.EncodedBytes) / float64(s.Results)
}
