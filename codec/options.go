package codec

// Options carries the ordered key->int encoding options from the job
// metadata (spec.md §3: "recognized keys: effort ∈ [1,10], decodingspeed
// ∈ [0,4], num_threads ∈ [0,∞) where 0 means codec-default / all cores").
// Unrecognized keys are preserved but ignored by the concrete encoders.
type Options map[string]int

// Effort returns the jxl-effort option, defaulting to 3 (the CLI's
// documented default per spec.md §6) when absent.
func (o Options) Effort() int {
	if v, ok := o["effort"]; ok {
		return v
	}
	return 3
}

// DecodingSpeed returns the jxl-decoding-speed option, defaulting to 0.
func (o Options) DecodingSpeed() int {
	return o["decodingspeed"]
}

// NumThreads returns the codec thread count, 0 meaning codec-default.
func (o Options) NumThreads() int {
	return o["num_threads"]
}

// Level is an encoding level that distinguishes "not set" (nil, meaning
// "use the fast lossless path where one exists") from an explicit
// integer, matching the Python original's use of None.
type Level = *int

// IntLevel is a convenience constructor for a non-nil Level.
func IntLevel(v int) Level {
	return &v
}
