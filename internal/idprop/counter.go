package idprop

import "idprop.dev/internal/scene"

// Every scene carries one counter prop per kind. The copies are redundant:
// any single scene can be deleted without losing the high-water mark, and a
// scene linked in with a stale copy is simply outvoted by the max and
// re-synchronized on the next advance.

const counterSuffix = "_id_counter"

// CounterKey is the hidden scene prop holding one kind's counter copy.
func CounterKey(kind scene.Kind) string { return string(kind) + counterSuffix }

// maxCounter returns the highest counter value among all scene copies,
// floored at 1 (the mint floor for a fresh document).
func maxCounter(doc *scene.Document, kind scene.Kind) (int64, error) {
	scenes := doc.Scenes()
	if len(scenes) == 0 {
		return 0, ErrNoScenes
	}
	key := CounterKey(kind)
	var max int64
	for _, sc := range scenes {
		if v := sc.PropInt(key); v > max {
			max = v
		}
	}
	if max < 1 {
		max = 1
	}
	return max, nil
}

// advanceCounter writes observed+1 to every scene copy, re-synchronizing any
// that had drifted, and returns the new value.
func advanceCounter(doc *scene.Document, kind scene.Kind, observed int64) int64 {
	next := observed + 1
	key := CounterKey(kind)
	for _, sc := range doc.Scenes() {
		sc.SetPropInt(key, next)
	}
	return next
}
