package probe

import "github.com/lukemcguire/deadcam/link"

// Classify maps a stream type to the probe strategy used for it. Still images
// are checked with a HEAD request; every other type, including unrecognized
// labels, is treated as a generic streaming endpoint.
func Classify(streamType link.StreamType) link.Strategy {
	if streamType == link.StreamJPEG {
		return link.StrategyHTTP
	}
	return link.StrategyStream
}
