package track

import "github.com/argus-protocol/argus/internal/engine/detect"

// match pairs detection index i with track index j (into the slice passed to
// associate, which the tracker keeps ordered by ascending track ID).
type match struct {
	det   int
	track int
}

// associate solves detection-to-track assignment using 1 − IoU as the cost.
// Pairs whose IoU falls below the gate are forbidden up front, and the gate
// is re-checked after the solve: the padded square solver can route a row
// through a forbidden cell when every alternative is forbidden too, and such
// pairs must fall out as unmatched rather than produce a bogus match.
func associate(dets []detect.Detection, tracks []*Track, iouGate float64) (matches []match, unmatchedDets, unmatchedTracks []int) {
	if len(dets) == 0 || len(tracks) == 0 {
		for i := range dets {
			unmatchedDets = append(unmatchedDets, i)
		}
		for j := range tracks {
			unmatchedTracks = append(unmatchedTracks, j)
		}
		return nil, unmatchedDets, unmatchedTracks
	}

	iou := make([][]float64, len(dets))
	cost := make([][]float64, len(dets))
	for i, d := range dets {
		iou[i] = make([]float64, len(tracks))
		cost[i] = make([]float64, len(tracks))
		db := BoxFromDetection(d)
		for j, t := range tracks {
			overlap := IoU(db, t.Box())
			iou[i][j] = overlap
			if overlap < iouGate {
				cost[i][j] = forbiddenCost
			} else {
				cost[i][j] = 1 - overlap
			}
		}
	}

	assign := HungarianAssign(cost)

	matchedTrack := make([]bool, len(tracks))
	for i, j := range assign {
		if j < 0 || iou[i][j] < iouGate {
			unmatchedDets = append(unmatchedDets, i)
			continue
		}
		matches = append(matches, match{det: i, track: j})
		matchedTrack[j] = true
	}
	for j := range tracks {
		if !matchedTrack[j] {
			unmatchedTracks = append(unmatchedTracks, j)
		}
	}

	return matches, unmatchedDets, unmatchedTracks
}
