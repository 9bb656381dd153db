package landmark

// Fit resizes seq to exactly target frames, matching the model's
// training-time padding: sequences longer than the window are truncated
// to the first target frames, shorter ones are padded with zero frames
// at the tail. The result is always a fresh slice.
func Fit(seq Sequence, target int) Sequence {
	if target <= 0 {
		target = MaxFrames
	}

	out := make(Sequence, target)
	if len(seq) >= target {
		copy(out, seq[:target])
		return out
	}
	copy(out, seq)
	// Remaining frames stay zero.
	return out
}

// Tensor flattens seq into the model's input layout, frame-major then
// point-major then x, y, z.
func Tensor(seq Sequence) []float32 {
	out := make([]float32, 0, len(seq)*TotalLandmarks*3)
	for i := range seq {
		out = append(out, seq[i].Flatten()...)
	}
	return out
}
