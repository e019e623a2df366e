package serializer

// StdoutURI is the special output path indicating standard output.
const StdoutURI = "-"
