package loyalty

// Reposition updates the bounded leader list after fan's score changed to
// score and returns the new list together with the fan's rank (-1 when the
// fan is not on the list). The list stays sorted by descending score. A fan
// that reaches a score already held by others is placed after them.
//
// Scores only grow within an epoch, so a present fan is removed and inserted
// again at its new position; an absent fan only enters a full list by
// strictly beating the lowest entry, which it evicts. Each call is O(K).
func Reposition(leaders []Leader, fan [20]byte, score uint64, capacity int) ([]Leader, int) {
	if capacity <= 0 {
		return leaders[:0], -1
	}
	out := make([]Leader, 0, capacity)
	present := false
	for _, l := range leaders {
		if l.Fan == fan {
			present = true
			continue
		}
		out = append(out, l)
	}
	if !present && len(out) >= capacity {
		lowest := out[len(out)-1]
		if score <= lowest.Score {
			return leaders, -1
		}
		out = out[:len(out)-1]
	}
	pos := len(out)
	for i, l := range out {
		if l.Score < score {
			pos = i
			break
		}
	}
	out = append(out, Leader{})
	copy(out[pos+1:], out[pos:])
	out[pos] = Leader{Fan: fan, Score: score}
	if len(out) > capacity {
		out = out[:capacity]
	}
	return out, pos
}

// Rank returns the index of fan in leaders or -1.
func Rank(leaders []Leader, fan [20]byte) int {
	for i, l := range leaders {
		if l.Fan == fan {
			return i
		}
	}
	return -1
}
