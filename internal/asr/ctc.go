package asr

// ctcGreedyDecode collapses CTC logits to token IDs. logits is row-major
// [steps, vocabSize]: the arg-max token of each timestep is emitted only
// when it differs from blankID and from the previous timestep's arg-max
// (the standard CTC collapse of blanks and repeated frames).
func ctcGreedyDecode(logits []float32, steps, vocabSize, blankID int) []int {
	if steps <= 0 || vocabSize <= 0 || len(logits) < steps*vocabSize {
		return nil
	}

	var tokens []int
	prev := -1
	for t := 0; t < steps; t++ {
		row := logits[t*vocabSize : (t+1)*vocabSize]
		best := 0
		for i := 1; i < vocabSize; i++ {
			if row[i] > row[best] {
				best = i
			}
		}
		if best != blankID && best != prev {
			tokens = append(tokens, best)
		}
		prev = best
	}
	return tokens
}
