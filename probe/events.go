package probe

import "github.com/lukemcguire/deadcam/result"

// Event reports progress after a single verdict is collected.
type Event struct {
	URL     string
	Alive   bool
	Reason  result.Reason
	Checked int // Verdicts collected so far
	Live    int // Alive verdicts so far
	Total   int // Records in the batch
}
