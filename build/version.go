package build

// Version is the current version of the transcoder binary.
const Version = "0.1.0"
