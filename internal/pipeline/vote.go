package pipeline

import (
	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/reply"
)

// quorum is how many of repeat replies must name a tag for it to be kept.
// Tag suggestions keep tags named by at least half of the replies (integer
// division, so a single query keeps everything); classification labels
// need every reply to agree.
func quorum(kind domain.TaskKind, repeat int) int {
	if kind == domain.TaskDefinition {
		return repeat
	}
	return repeat / 2
}

// vote merges the parsed replies of one window, all of which must have the
// same length. A tag is counted once per reply and kept when it reaches the
// quorum; kept tags are ordered by first appearance.
func vote(kind domain.TaskKind, replies []reply.Results) reply.Results {
	if len(replies) == 0 {
		return nil
	}
	if len(replies) == 1 {
		return replies[0]
	}

	need := quorum(kind, len(replies))
	merged := make(reply.Results, len(replies[0]))
	for pos := range merged {
		counts := make(map[string]int)
		var order []string
		for _, results := range replies {
			seen := make(map[string]struct{}, len(results[pos]))
			for _, tag := range results[pos] {
				if _, dup := seen[tag]; dup {
					continue
				}
				seen[tag] = struct{}{}
				if counts[tag] == 0 {
					order = append(order, tag)
				}
				counts[tag]++
			}
		}

		kept := make([]string, 0, len(order))
		for _, tag := range order {
			if counts[tag] >= need {
				kept = append(kept, tag)
			}
		}
		merged[pos] = kept
	}
	return merged
}
