package worker

const costStepBytes = 5 * 1024 * 1024

// CostInCredits computes the purchase price of a processed file from its
// original size: a baseline of 2 credits plus 1 credit per started 5 MiB.
//
//	0 B       -> 2
//	5 MiB     -> 3
//	26 MiB    -> 8
func CostInCredits(originalSizeBytes int64) int {
	steps := (originalSizeBytes + costStepBytes - 1) / costStepBytes
	return 2 + int(steps)
}
